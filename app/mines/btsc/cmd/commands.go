package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/handlers"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/compress"
	"github.com/lk2023060901/xdooria-ai/pkg/framer"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/spf13/pflag"
)

const usage = `usage: btsc <command> [flags] FILE...

commands:
  fmt        print a script in canonical form (-w rewrites the file)
  compile    compile a script to bytecode (-o OUT)
  decompile  print the script encoded in a bytecode file
  check      report handlers not in the host registry (--known overrides it)
  bundle     pack scripts into a bundle (-o OUT, --compress TYPE)
  list       print the conditions and tasks in the host registry
`

// errCheckFailed check 发现未注册的处理器
var errCheckFailed = errors.New("unknown handlers found")

type command func(args []string, stdout io.Writer, log logger.Logger) error

var commands = map[string]command{
	"fmt":       cmdFmt,
	"compile":   cmdCompile,
	"decompile": cmdDecompile,
	"check":     cmdCheck,
	"bundle":    cmdBundle,
	"list":      cmdList,
}

// run 执行子命令并返回退出码
func run(args []string, stdout, stderr io.Writer) int {
	log := logger.NewWithCore(newConsoleCore(stderr)).Named("btsc")
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
	if err := cmd(args[1:], stdout, log); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		log.Error("command failed", "command", args[0], "error", err)
		return 1
	}
	return 0
}

func newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func compileFile(path string) (*bt.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var opts []bt.CompileOption
	if a, ok := ai.ArchetypeForFile(path); ok {
		p, _ := ai.LookupProfile(a)
		opts = append(opts, bt.WithSignature(p.Signature()))
	}
	t, err := bt.Compile(string(data), opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "compile %s", path)
	}
	return t, nil
}

func oneFile(fs *pflag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", errors.Newf("%s needs exactly one FILE", fs.Name())
	}
	return fs.Arg(0), nil
}

func cmdFmt(args []string, stdout io.Writer, log logger.Logger) error {
	fs := newFlags("fmt")
	write := fs.BoolP("write", "w", false, "rewrite the file in place")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := oneFile(fs)
	if err != nil {
		return err
	}
	t, err := compileFile(path)
	if err != nil {
		return err
	}
	out := bt.Format(t)
	if !*write {
		_, err := io.WriteString(stdout, out)
		return err
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	log.Info("formatted", "file", path)
	return nil
}

func cmdCompile(args []string, _ io.Writer, log logger.Logger) error {
	fs := newFlags("compile")
	out := fs.StringP("output", "o", "", "bytecode output path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := oneFile(fs)
	if err != nil {
		return err
	}
	if *out == "" {
		return errors.New("compile needs -o OUT")
	}
	t, err := compileFile(path)
	if err != nil {
		return err
	}
	data, err := bt.Encode(t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", *out)
	}
	log.Info("compiled", "file", path, "output", *out, "nodes", t.Size(), "bytes", len(data))
	return nil
}

func cmdDecompile(args []string, stdout io.Writer, _ logger.Logger) error {
	fs := newFlags("decompile")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := oneFile(fs)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	t, err := bt.Decode(data)
	if err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	_, err = io.WriteString(stdout, bt.Format(t))
	return err
}

// knownRegistry --known 给出的名字同时视为条件与任务
func knownRegistry(names []string) *bt.Registry[struct{}] {
	reg := bt.NewRegistry[struct{}]()
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		reg.RegisterCondition(n, func(struct{}, []string) bool { return false })
		reg.RegisterTask(n, func(struct{}, []string) bt.Status { return bt.Failure })
	}
	return reg
}

func cmdCheck(args []string, stdout io.Writer, log logger.Logger) error {
	fs := newFlags("check")
	known := fs.StringSlice("known", nil, "handler names to accept instead of the mines registry")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("check needs at least one FILE")
	}

	var checkTree func(*bt.Tree) []*bt.UnknownHandlerError
	if fs.Changed("known") {
		checkTree = knownRegistry(*known).Check
	} else {
		set := handlers.New(handlers.DefaultConfig(), log)
		defer set.Close()
		checkTree = set.NewRegistry().Check
	}

	failed := false
	for _, path := range fs.Args() {
		t, err := compileFile(path)
		if err != nil {
			return err
		}
		for _, u := range checkTree(t) {
			failed = true
			fmt.Fprintf(stdout, "%s: unknown %s %q\n", path, u.Kind, u.Name)
		}
	}
	if failed {
		return errCheckFailed
	}
	return nil
}

func cmdList(args []string, stdout io.Writer, log logger.Logger) error {
	fs := newFlags("list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	set := handlers.New(handlers.DefaultConfig(), log)
	defer set.Close()
	reg := set.NewRegistry()
	for _, name := range reg.Conditions() {
		fmt.Fprintf(stdout, "condition %s\n", name)
	}
	for _, name := range reg.Tasks() {
		fmt.Fprintf(stdout, "task %s\n", name)
	}
	return nil
}

func cmdBundle(args []string, _ io.Writer, log logger.Logger) error {
	fs := newFlags("bundle")
	out := fs.StringP("output", "o", "", "bundle output path")
	algo := fs.String("compress", string(compress.TypeZstd), "compression: "+compressNames())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("bundle needs -o OUT")
	}
	if fs.NArg() == 0 {
		return errors.New("bundle needs at least one FILE")
	}

	b := ai.NewBundle()
	for _, path := range fs.Args() {
		a, ok := ai.ArchetypeForFile(path)
		if !ok {
			return errors.Wrapf(ai.ErrUnknownArchetype, "no archetype uses %s", filepath.Base(path))
		}
		t, err := compileFile(path)
		if err != nil {
			return err
		}
		if err := b.Add(a, t); err != nil {
			return err
		}
	}

	f, err := framer.New(&framer.Config{Compress: compress.Type(*algo)})
	if err != nil {
		return err
	}
	data, err := ai.MarshalBundle(b, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", *out)
	}
	log.Info("bundle written", "output", *out, "entries", len(b.Entries), "bytes", len(data), "compress", *algo)
	return nil
}

func compressNames() string {
	var names []string
	for _, t := range compress.List() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
