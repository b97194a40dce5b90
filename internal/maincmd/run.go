package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mna/mainer"
	"golang.org/x/term"

	"github.com/gtrpe/quollvm/lang/gamefile"
	"github.com/gtrpe/quollvm/lang/token"
	"github.com/gtrpe/quollvm/lang/value"
	"github.com/gtrpe/quollvm/runtime"
	"github.com/gtrpe/quollvm/runtime/savestore"
)

// Run loads a compiled gamefile and drives it interactively: it prints each
// turn's text, then services whatever the Thread suspended on (a line, a
// key, or a multiple-choice option list) from stdin, matching the host
// contract spec.md §4.6/§9 describe.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) != 1 {
		return printError(stdio, fmt.Errorf("run: exactly one gamefile path is required"))
	}

	img, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, fmt.Errorf("reading %s: %w", args[0], err))
	}

	g, hdr, err := gamefile.Decode(img)
	if err != nil {
		return printError(stdio, fmt.Errorf("decoding %s: %w", args[0], err))
	}

	var store runtime.FileStore
	savePath := c.Save
	if savePath == "" {
		// No --save given: persist to a uniquely named scratch database for
		// this run rather than silently discarding File* opcode writes.
		savePath = fmt.Sprintf("%s-%s.db", strings.TrimSuffix(args[0], ".gam"), uuid.NewString())
		fmt.Fprintf(stdio.Stdout, "no --save given, using %s\n", savePath)
	}
	db, err := savestore.Open(savePath)
	if err != nil {
		return printError(stdio, err)
	}
	defer db.Close()
	store = db

	th := runtime.NewThread(g, store)
	if int(hdr.GameIDStringID) < len(g.Strings) {
		th.GameID = g.Strings[hdr.GameIDStringID].Text
	}

	in := bufio.NewReader(stdio.Stdin)
	res, err := th.Start(hdr.MainFunctionID, nil)
	for {
		if err != nil {
			return printError(stdio, err)
		}
		if res.Text != "" {
			fmt.Fprint(stdio.Stdout, res.Text)
		}
		if res.Ended {
			return nil
		}

		var reply value.Value
		switch res.Option {
		case runtime.OptionLine:
			line, rerr := in.ReadString('\n')
			if rerr != nil && line == "" {
				return nil
			}
			reply = reserveAsString(th, strings.TrimRight(line, "\r\n"))

		case runtime.OptionKey:
			reply = value.Int(int32(readRawKey(stdio)))

		case runtime.OptionChoice:
			for _, opt := range res.Options {
				fmt.Fprintf(stdio.Stdout, "  %s\n", optionText(th, opt))
			}
			line, _ := in.ReadString('\n')
			reply = value.Int(int32(matchOption(res.Options, strings.TrimSpace(line))))

		default:
			return printError(stdio, fmt.Errorf("run: unexpected suspension %s", res.Option))
		}

		res, err = th.Resume(reply)
	}
}

func reserveAsString(th *runtime.Thread, text string) value.Value {
	id := th.Game.InternString(text, token.Origin{})
	return value.Value{Tag: value.String, Payload: id}
}

func optionText(th *runtime.Thread, opt runtime.Option) string {
	if int(opt.StrID) < len(th.Game.Strings) {
		return th.Game.Strings[opt.StrID].Text
	}
	return ""
}

func matchOption(opts []runtime.Option, reply string) int32 {
	for _, opt := range opts {
		if reply == fmt.Sprint(opt.Hotkey) {
			return opt.Hotkey
		}
	}
	if len(opts) > 0 {
		return opts[0].Hotkey
	}
	return -1
}

// readRawKey reads a single byte from stdin without waiting for a newline,
// falling back to line mode when stdin isn't a terminal (e.g. piped input
// in tests or scripted playthroughs).
func readRawKey(stdio mainer.Stdio) byte {
	f, ok := stdio.Stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		buf := make([]byte, 1)
		stdio.Stdin.Read(buf)
		return buf[0]
	}

	oldState, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		buf := make([]byte, 1)
		stdio.Stdin.Read(buf)
		return buf[0]
	}
	defer term.Restore(int(f.Fd()), oldState)

	buf := make([]byte, 1)
	f.Read(buf)
	return buf[0]
}
