// Command ringctl is an interactive operator shell for a running ring
// node: it drives the node's debug RPCs (describe, succ, pred, lookup)
// over the same RPC surface peers use, without adding anything to the
// core's own public API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"chordring/internal/key"
	"chordring/internal/logger"
	"chordring/internal/ring"
	"chordring/internal/rpc"

	"github.com/peterh/liner"
)

func main() {
	addr := flag.String("addr", "localhost:4000", "address of the ring node to connect to")
	idBits := flag.Int("id-bits", 256, "identifier space width in bits, must match the ring")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	space, err := key.NewSpace(*idBits)
	if err != nil {
		fmt.Printf("invalid id-bits: %v\n", err)
		return
	}
	client := rpc.NewClient(space, *timeout, logger.NopLogger{}, false)
	defer func() { _ = client.Close() }()

	current := ring.Descriptor{Addr: *addr, ID: space.IDFromString(*addr)}

	fmt.Printf("ringctl connected to %s\n", current.Addr)
	fmt.Println("Commands: describe, succ, pred, lookup <key-hex>, use <addr>, help, exit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(fmt.Sprintf("ring[%s]> ", current.Addr))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("aborted")
				continue
			}
			break
		}
		line.AppendHistory(input)

		fields := strings.Fields(strings.TrimSpace(input))
		if len(fields) == 0 {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		switch fields[0] {
		case "describe":
			snap, err := client.Describe(ctx, current)
			if err != nil {
				fmt.Printf("describe failed: %v\n", err)
				break
			}
			printSnapshot(snap)

		case "succ":
			s, err := client.GetSuccessor(ctx, current)
			if err != nil {
				fmt.Printf("get_successor failed: %v\n", err)
				break
			}
			fmt.Println(s.LogString())

		case "pred":
			p, ok, err := client.GetPredecessor(ctx, current)
			if err != nil {
				fmt.Printf("get_predecessor failed: %v\n", err)
				break
			}
			if !ok {
				fmt.Println("<none>")
				break
			}
			fmt.Println(p.LogString())

		case "lookup":
			if len(fields) < 2 {
				fmt.Println("usage: lookup <key-hex>")
				break
			}
			id, err := space.IDFromHex(fields[1])
			if err != nil {
				fmt.Printf("invalid key: %v\n", err)
				break
			}
			d, err := client.FindSuccessor(ctx, current, id)
			if err != nil {
				fmt.Printf("find_successor failed: %v\n", err)
				break
			}
			fmt.Println(d.LogString())

		case "use":
			if len(fields) < 2 {
				fmt.Println("usage: use <host:port>")
				break
			}
			current = ring.Descriptor{Addr: fields[1], ID: space.IDFromString(fields[1])}
			fmt.Printf("switched to %s\n", current.Addr)

		case "help", "?":
			fmt.Println("describe           - dump self/predecessor/successor/fingers")
			fmt.Println("succ               - get_successor")
			fmt.Println("pred               - get_predecessor")
			fmt.Println("lookup <key-hex>   - find_successor(key)")
			fmt.Println("use <host:port>    - point the shell at a different node")
			fmt.Println("exit               - quit")

		case "exit", "quit":
			cancel()
			return

		default:
			fmt.Printf("unknown command %q, type 'help'\n", fields[0])
		}
		cancel()
	}
}

func printSnapshot(snap rpc.Snapshot) {
	fmt.Printf("self:        %s\n", snap.Self.LogString())
	if snap.Predecessor != nil {
		fmt.Printf("predecessor: %s\n", snap.Predecessor.LogString())
	} else {
		fmt.Println("predecessor: <none>")
	}
	fmt.Printf("successor:   %s\n", snap.Successor.LogString())
	fmt.Printf("fingers (%d):\n", len(snap.Fingers))
	for i, f := range snap.Fingers {
		fmt.Printf("  [%3d] %s\n", i, f.LogString())
	}
}
