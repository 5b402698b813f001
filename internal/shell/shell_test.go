package shell_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umcn/internal/shell"
	"umcn/pkg/mcn"
)

func newShell(out io.Writer) *shell.Shell {
	return shell.New(strings.NewReader(""), out, 10*time.Millisecond, 1)
}

func textEcho(text string) mcn.EchoFunc {
	return func(w io.Writer, h *mcn.Hub) error {
		buf := make([]byte, h.Size())
		if err := h.Read(buf); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "%s:%x\n", text, buf)
		return err
	}
}

func TestListShowsTopics(t *testing.T) {
	hub := mcn.Define("shell-list", 2)
	require.NoError(t, hub.Advertise(textEcho("v")))

	var out bytes.Buffer
	code := newShell(&out).RunMcn(context.Background(), []string{"list"})
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Topic")
	assert.Contains(t, out.String(), "Freq(Hz)")
	assert.Contains(t, out.String(), "shell-list")
}

func TestSuspendAndResume(t *testing.T) {
	hub := mcn.Define("shell-susp", 1)
	require.NoError(t, hub.Advertise(nil))

	var out bytes.Buffer
	s := newShell(&out)

	assert.Equal(t, 0, s.RunMcn(context.Background(), []string{"suspend", "shell-susp"}))
	assert.True(t, hub.Suspended())

	assert.Equal(t, 0, s.RunMcn(context.Background(), []string{"resume", "shell-susp"}))
	assert.False(t, hub.Suspended())
}

func TestUnknownTopic(t *testing.T) {
	var out bytes.Buffer
	s := newShell(&out)

	assert.Equal(t, 1, s.RunMcn(context.Background(), []string{"suspend", "no-such"}))
	assert.Contains(t, out.String(), "can not find topic no-such")

	out.Reset()
	assert.Equal(t, 1, s.RunMcn(context.Background(), []string{"echo", "no-such"}))
	assert.Contains(t, out.String(), "can not find topic no-such")
}

func TestEchoWithoutEchoFunction(t *testing.T) {
	hub := mcn.Define("shell-noecho", 1)
	require.NoError(t, hub.Advertise(nil))

	var out bytes.Buffer
	code := newShell(&out).RunMcn(context.Background(), []string{"echo", "shell-noecho"})
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "there is no topic echo function defined")
}

func TestEchoTopic(t *testing.T) {
	hub := mcn.Define("shell-echo", 2)
	require.NoError(t, hub.Advertise(textEcho("value")))
	require.NoError(t, hub.Publish([]byte{0xCA, 0xFE}))

	var out bytes.Buffer
	// The topic is already published, so the catch-up renewal makes a single
	// echo complete on the first poll.
	code := newShell(&out).RunMcn(context.Background(),
		[]string{"echo", "shell-echo", "-n", "1", "-p", "5"})
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "value:cafe")
	assert.Equal(t, 0, hub.SubscriberCount(), "echo must unsubscribe when done")
}

func TestEchoRepeats(t *testing.T) {
	hub := mcn.Define("shell-echo-n", 1)
	require.NoError(t, hub.Advertise(textEcho("tick")))

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for i := byte(1); ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_ = hub.Publish([]byte{i})
			time.Sleep(2 * time.Millisecond)
		}
	}()

	var out bytes.Buffer
	code := newShell(&out).RunMcn(context.Background(),
		[]string{"echo", "shell-echo-n", "-n", "3", "-p", "5"})
	assert.Equal(t, 0, code)
	assert.GreaterOrEqual(t, strings.Count(out.String(), "tick:"), 3)
}

func TestEchoCanceledContext(t *testing.T) {
	hub := mcn.Define("shell-echo-ctx", 1)
	require.NoError(t, hub.Advertise(textEcho("x")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	// Nothing is ever published; the canceled context must end the loop
	// instead of hanging.
	code := newShell(&out).RunMcn(ctx, []string{"echo", "shell-echo-ctx", "-n", "1"})
	assert.Equal(t, 0, code)
	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestReplRunsCommandsAndExits(t *testing.T) {
	hub := mcn.Define("shell-repl", 1)
	require.NoError(t, hub.Advertise(nil))

	input := "mcn list\nbogus\nexit\n"
	var out bytes.Buffer
	s := shell.New(strings.NewReader(input), &out, 10*time.Millisecond, 1)
	require.NoError(t, s.Run(context.Background()))

	assert.Contains(t, out.String(), "shell-repl")
	assert.Contains(t, out.String(), "unknown command: bogus")
	assert.Contains(t, out.String(), "msh> ")
}
