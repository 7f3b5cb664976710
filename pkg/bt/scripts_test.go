package bt

const spiderScript = `
[TREE]
  [SEL]
    [COND p1="player_in_range"]
      [SEL]
        [COND p1="player_visible"]
          [SEQ]
            [TASK p1="save_player_pos"]
            [SEL]
              [COND p1="has_effect" p2="player" p3="Psd"]
                [SEL]
                  [TASK p1="move_away"]
                  [COND p1="player_in_range" p2="1"]
                    [TASK p1="attack_effect" p2="Psd"]
              [COND p1="player_in_range" p2="1"]
                [TASK p1="attack_effect" p2="Psd"]
              [TASK p1="chase_player"]
        [COND p1="has_effect" p2="player" p3="Psd"]
          [TASK p1="move_away"]
        [TASK p1="goto_last_player_pos"]
    [TASK p1="move_rnd"]
    [TASK p1="idle"]
`

const trollScript = `
[TREE]
  [SEL]
    [COND p1="player_in_range"]
      [SEL]
        [COND p1="player_visible"]
          [SEL]
            [COND p1="player_in_range" p2="1"]
              [SEL]
                [COND p1="hp_low"]
                  [TASK p1="move_away"]
                [TASK p1="attack"]
            [COND p1="hp_low"]
              [SEL]
                [TASK p1="move_away"]
            [TASK p1="chase_player"]
    [TASK p1="move_rnd"]
    [TASK p1="idle"]
`

// stubWorld 以名称+参数为键的固定答案，记录每个处理器的调用次数
type stubWorld struct {
	answers map[string]bool
	results map[string]Status
	calls   map[string]int
	order   []string
}

func newStubWorld() *stubWorld {
	return &stubWorld{
		answers: make(map[string]bool),
		results: make(map[string]Status),
		calls:   make(map[string]int),
	}
}

func stubKey(name string, args []string) string {
	key := name
	for _, a := range args {
		key += " " + a
	}
	return key
}

func (w *stubWorld) cond(name string) Predicate[*stubWorld] {
	return func(ctx *stubWorld, args []string) bool {
		key := stubKey(name, args)
		ctx.calls[key]++
		ctx.order = append(ctx.order, key)
		return ctx.answers[key]
	}
}

func (w *stubWorld) task(name string) Action[*stubWorld] {
	return func(ctx *stubWorld, args []string) Status {
		key := stubKey(name, args)
		ctx.calls[key]++
		ctx.order = append(ctx.order, key)
		if st, ok := ctx.results[key]; ok {
			return st
		}
		return Success
	}
}

func stubRegistry(conds, tasks []string) *Registry[*stubWorld] {
	reg := NewRegistry[*stubWorld]()
	w := newStubWorld()
	for _, c := range conds {
		reg.RegisterCondition(c, w.cond(c))
	}
	for _, t := range tasks {
		reg.RegisterTask(t, w.task(t))
	}
	return reg
}

func monsterRegistry() *Registry[*stubWorld] {
	return stubRegistry(
		[]string{"player_in_range", "player_visible", "has_effect", "hp_low"},
		[]string{"save_player_pos", "move_away", "attack_effect", "chase_player",
			"goto_last_player_pos", "move_rnd", "idle", "attack"},
	)
}
