package delivery

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/vidgrab/vidgrab/pkg/models"
)

// Console is a Channel for local development. Prompts render on a writer,
// buttons show their callback tokens so they can be typed back, and files
// are reported by their storage ref. Real transports replace this at wiring
// time.
type Console struct {
	mu   sync.Mutex
	out  io.Writer
	next int
	last MessageRef
}

// NewConsole creates a console channel writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) SendPrompt(ctx context.Context, userID, text string, buttons [][]Button) (MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next++
	ref := MessageRef(fmt.Sprintf("console-%d", c.next))
	c.last = ref

	fmt.Fprintf(c.out, "\n[%s] %s\n", ref, text)
	c.printButtons(buttons)
	return ref, nil
}

func (c *Console) EditPrompt(ctx context.Context, ref MessageRef, text string, buttons [][]Button) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n[%s edited] %s\n", ref, text)
	c.printButtons(buttons)
	return nil
}

func (c *Console) DeleteMessage(ctx context.Context, ref MessageRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "[%s deleted]\n", ref)
	return nil
}

func (c *Console) SendFile(ctx context.Context, userID string, track models.TrackType, fileRef, caption string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n[file %s] %s\n%s\n", track, fileRef, caption)
	return nil
}

func (c *Console) Acknowledge(ctx context.Context, interaction InteractionRef, text string) error {
	if text == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "(%s)\n", text)
	return nil
}

// LastRef returns the ref of the most recently sent prompt, so typed-in
// callback tokens can target it.
func (c *Console) LastRef() MessageRef {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}

func (c *Console) printButtons(buttons [][]Button) {
	for _, row := range buttons {
		for _, b := range row {
			fmt.Fprintf(c.out, "  [%s] -> %s\n", b.Text, b.Data)
		}
	}
}
