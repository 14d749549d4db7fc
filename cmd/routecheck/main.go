// Command routecheck resolves a route expression against a routing config
// file and prints the resulting tree of leaf destinations, without ever
// touching a real network. It exists purely as an offline debugging aid
// for routing table authors (spec §1's explicit network-transport
// non-goal is what makes a fake INetwork here appropriate rather than a
// corner-cut).
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/vespaext/mbus"
	"github.com/vespaext/mbus/config"
)

func main() {
	app := cli.NewApp()
	app.Name = "routecheck"
	app.Usage = "resolve a route expression against a routing config, offline"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to a routing config (TOML or config-string)"},
		cli.StringFlag{Name: "protocol", Value: "default", Usage: "protocol whose routing table to resolve against"},
		cli.StringFlag{Name: "route", Usage: "route expression to resolve"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "routecheck:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	path := c.String("config")
	proto := c.String("protocol")
	routeExpr := c.String("route")
	if path == "" || routeExpr == "" {
		return cli.NewExitError("both --config and --route are required", 2)
	}

	var spec *mbus.RoutingSpec
	var err error
	if strings.HasSuffix(path, ".toml") {
		spec, err = config.LoadTOML(path)
	} else {
		spec, err = config.LoadConfigString(path)
	}
	if err != nil {
		return err
	}

	tables, err := mbus.NewRoutingTableSet(*spec)
	if err != nil {
		return err
	}

	net := newFakeNetwork()
	route := mbus.ParseRoute(routeExpr)
	msg := &mbus.Message{Protocol: proto, Deadline: time.Now().Add(30 * time.Second)}

	handler := &collectingReplyHandler{}
	root := mbus.Send(route, msg, tables, net, noopProtocol{}, nil, nil, handler, nil)

	printTree(root, 0)
	if handler.reply != nil {
		fmt.Println()
		fmt.Println("final reply errors:")
		for _, e := range handler.reply.Errors() {
			fmt.Printf("  %s: %s\n", e.Code, e.Message)
		}
	}
	return nil
}

func printTree(n *mbus.RoutingNode, depth int) {
	indent := strings.Repeat("  ", depth)
	label := "<unresolved>"
	if n.Route() != nil {
		label = n.Route().Hop(0).String()
	}
	if addr := n.ServiceAddress(); addr != nil {
		fmt.Printf("%s- %s -> %v\n", indent, label, addr)
	} else {
		fmt.Printf("%s- %s\n", indent, label)
	}
	for _, child := range n.Children() {
		printTree(child, depth+1)
	}
}

// collectingReplyHandler records the final reply delivered to the root of
// a Send, so routecheck can print its errors after the tree.
type collectingReplyHandler struct {
	reply *mbus.Reply
}

func (h *collectingReplyHandler) HandleReply(reply *mbus.Reply) { h.reply = reply }

// fakeNetwork allocates a synthetic address for every leaf hop name
// instead of ever touching a real transport, and never calls back with an
// asynchronous reply: a route that bottoms out in a leaf simply never
// completes, which is fine for printing the resolved tree shape.
type fakeNetwork struct{ mirror fakeMirror }

func newFakeNetwork() *fakeNetwork { return &fakeNetwork{} }

func (f *fakeNetwork) AllocServiceAddress(node *mbus.RoutingNode) {
	node.SetServiceAddress("tcp://" + node.Route().Hop(0).ServiceName())
}

func (f *fakeNetwork) FreeServiceAddress(node *mbus.RoutingNode) {}

func (f *fakeNetwork) Send(msg *mbus.Message, leaves []*mbus.RoutingNode) {}

func (f *fakeNetwork) Mirror() mbus.IMirrorAPI { return f.mirror }

type fakeMirror struct{}

func (fakeMirror) LookupService(pattern string) []string { return []string{pattern} }

// noopProtocol recognizes no policies; routecheck is meant for
// destination-shape inspection, not for exercising policy plugins.
type noopProtocol struct{}

func (noopProtocol) CreatePolicy(name, param string) mbus.IRoutingPolicy { return nil }
