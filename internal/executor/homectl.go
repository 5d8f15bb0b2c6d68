package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hearthd/hearth/internal/homegraph"
	"github.com/hearthd/hearth/internal/intent"
)

// ToolSession is the slice of an MCP client session the home-control
// executor needs. *mcpsdk.ClientSession satisfies it.
type ToolSession interface {
	CallTool(ctx context.Context, params *mcpsdk.CallToolParams) (*mcpsdk.CallToolResult, error)
}

// HomeControlOption is a functional option for configuring [HomeControl].
type HomeControlOption func(*HomeControl)

// WithToolName sets the MCP tool invoked for device commands.
// Default: "home_control".
func WithToolName(name string) HomeControlOption {
	return func(h *HomeControl) { h.toolName = name }
}

// WithHomeControlLogger sets the logger. Defaults to [slog.Default].
func WithHomeControlLogger(logger *slog.Logger) HomeControlOption {
	return func(h *HomeControl) { h.logger = logger }
}

// HomeControl executes device intents (turn on/off, scenes, state queries)
// through an MCP home-automation server, and consults the device registry to
// narrow clarifying questions about which device was meant.
type HomeControl struct {
	session  ToolSession
	store    homegraph.Store
	toolName string
	logger   *slog.Logger
}

var _ Executor = (*HomeControl)(nil)

// NewHomeControl returns a HomeControl over an established MCP session.
func NewHomeControl(session ToolSession, store homegraph.Store, opts ...HomeControlOption) *HomeControl {
	h := &HomeControl{
		session:  session,
		store:    store,
		toolName: "home_control",
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// ConnectStdio launches command as an MCP server over stdio and returns the
// session. The caller owns the session and must close it on shutdown.
func ConnectStdio(ctx context.Context, command string, args ...string) (*mcpsdk.ClientSession, error) {
	client := mcpsdk.NewClient(
		&mcpsdk.Implementation{Name: "hearth", Version: "1.0.0"},
		nil,
	)
	cmd := exec.CommandContext(ctx, command, args...)
	session, err := client.Connect(ctx, &mcpsdk.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, fmt.Errorf("executor: connect mcp server %q: %w", command, err)
	}
	return session, nil
}

// ConnectHTTP connects to a streamable-HTTP MCP server at endpoint.
func ConnectHTTP(ctx context.Context, endpoint string) (*mcpsdk.ClientSession, error) {
	client := mcpsdk.NewClient(
		&mcpsdk.Implementation{Name: "hearth", Version: "1.0.0"},
		nil,
	)
	session, err := client.Connect(ctx, &mcpsdk.StreamableClientTransport{Endpoint: endpoint}, nil)
	if err != nil {
		return nil, fmt.Errorf("executor: connect mcp endpoint %q: %w", endpoint, err)
	}
	return session, nil
}

// Execute implements [Executor].
func (h *HomeControl) Execute(ctx context.Context, c intent.Candidate) (Result, error) {
	if c.Target == nil {
		return Result{}, fmt.Errorf("executor: home control intent %q has no target", c.Action)
	}

	device, err := h.store.Get(ctx, c.Target.DeviceID)
	if err != nil {
		return Result{}, fmt.Errorf("executor: look up device %q: %w", c.Target.DeviceID, err)
	}

	args := map[string]any{
		"action":  string(c.Action),
		"device":  device.ID,
		"address": device.Address,
	}

	callResult, err := h.session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      h.toolName,
		Arguments: args,
	})
	if err != nil {
		return Result{}, fmt.Errorf("executor: home control call for %q failed: %w", device.Name, err)
	}

	var sb strings.Builder
	for _, content := range callResult.Content {
		if tc, ok := content.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	if callResult.IsError {
		return Result{}, fmt.Errorf("executor: home control server rejected %q for %q: %s",
			c.Action, device.Name, sb.String())
	}

	h.logger.Info("home control action executed", "action", string(c.Action), "device", device.Name)
	return Result{Speech: h.speechFor(c.Action, device, sb.String())}, nil
}

// ChoicesFor implements [Executor]. For the entity slot it offers the
// registry's device names so the clarifying question can enumerate real
// devices instead of asking open-endedly.
func (h *HomeControl) ChoicesFor(ctx context.Context, c intent.Candidate, slot string) []string {
	if slot != intent.SlotEntity {
		return nil
	}

	opts := homegraph.ListOptions{}
	if c.Action == intent.ActionActivateScene {
		opts.Kind = homegraph.KindScene
	}
	devices, err := h.store.List(ctx, opts)
	if err != nil {
		h.logger.Warn("could not list devices for clarifying question", "error", err)
		return nil
	}

	// Spoken lists longer than three alternatives are hard to hold in mind;
	// the question phrasing caps there too.
	const maxChoices = 3
	names := make([]string, 0, min(len(devices), maxChoices))
	for _, d := range devices {
		if len(names) == maxChoices {
			break
		}
		names = append(names, d.Name)
	}
	return names
}

// speechFor phrases the confirmation. State queries speak the server's
// answer verbatim; commands get a short acknowledgement.
func (h *HomeControl) speechFor(action intent.ActionKind, device homegraph.Device, serverText string) string {
	switch action {
	case intent.ActionTurnOn:
		return fmt.Sprintf("Okay, turned on the %s.", device.Name)
	case intent.ActionTurnOff:
		return fmt.Sprintf("Okay, turned off the %s.", device.Name)
	case intent.ActionActivateScene:
		return fmt.Sprintf("Okay, starting %s.", device.Name)
	case intent.ActionDeviceQuery:
		if serverText != "" {
			return serverText
		}
		return fmt.Sprintf("I couldn't read the state of the %s.", device.Name)
	default:
		if serverText != "" {
			return serverText
		}
		return "Done."
	}
}
