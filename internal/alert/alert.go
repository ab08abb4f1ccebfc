// Package alert plays the incoming-offer alert sound.
package alert

import (
	"log"
	"os/exec"
	"sync"
)

// Player is the alert-sound capability. Both operations are best-effort:
// a missing or broken sound backend degrades to silence, never to an error
// the session has to handle.
type Player interface {
	// Play starts the alert. Restartable: calling Play while already
	// playing restarts the sound.
	Play()
	// Stop silences the alert. Safe to call when nothing is playing.
	Stop()
}

// Noop is the Player used when no sound backend is configured.
type Noop struct{}

func (Noop) Play() {}
func (Noop) Stop() {}

// Command plays the alert by spawning a shell command (e.g. a paplay
// invocation) and kills it on Stop.
type Command struct {
	command string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewCommand creates a Command player. An empty command yields a player
// that does nothing.
func NewCommand(command string) *Command {
	return &Command{command: command}
}

// Play restarts the alert command.
func (c *Command) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.command == "" {
		return
	}
	c.stopLocked()

	cmd := exec.Command("sh", "-c", c.command)
	if err := cmd.Start(); err != nil {
		log.Printf("alert: start %q: %v", c.command, err)
		return
	}
	c.cmd = cmd
	go func() {
		// Reap the process; ignore the exit status, Stop kills it on purpose.
		cmd.Wait()
		c.mu.Lock()
		if c.cmd == cmd {
			c.cmd = nil
		}
		c.mu.Unlock()
	}()
}

// Stop kills the running alert command, if any.
func (c *Command) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Command) stopLocked() {
	if c.cmd == nil {
		return
	}
	if c.cmd.Process != nil {
		if err := c.cmd.Process.Kill(); err != nil {
			log.Printf("alert: stop: %v", err)
		}
	}
	c.cmd = nil
}
