package bt

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrSyntax 脚本语法错误
	ErrSyntax = errors.New("bt: syntax error")
	// ErrUnknownHandler 条件或任务未注册
	ErrUnknownHandler = errors.New("bt: unknown handler")
	// ErrBytecode 字节码无效
	ErrBytecode = errors.New("bt: invalid bytecode")
)

// SyntaxError 编译错误，携带行号与出错的记号
type SyntaxError struct {
	Line  int
	Token string
	Msg   string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("bt: line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("bt: line %d: %s (near %q)", e.Line, e.Msg, e.Token)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

func syntaxErr(line int, token, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: line, Token: token, Msg: fmt.Sprintf(format, args...)}
}

// HandlerKind 处理器类别
type HandlerKind string

const (
	HandlerCondition HandlerKind = "condition"
	HandlerTask      HandlerKind = "task"
)

// UnknownHandlerError 未注册的处理器
type UnknownHandlerError struct {
	Kind HandlerKind
	Name string
}

func (e *UnknownHandlerError) Error() string {
	return fmt.Sprintf("bt: unknown %s handler %q", e.Kind, e.Name)
}

func (e *UnknownHandlerError) Is(target error) bool {
	return target == ErrUnknownHandler
}

func bytecodeErr(format string, args ...any) error {
	return errors.Wrapf(ErrBytecode, format, args...)
}
