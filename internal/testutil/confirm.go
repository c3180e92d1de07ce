package testutil

import "sync"

// ScriptedConfirmer answers confirmation prompts from a fixed script and
// records every message it was asked. Once the script runs out it answers
// Default.
type ScriptedConfirmer struct {
	mu      sync.Mutex
	Answers []bool
	Default bool
	Asked   []string
}

func (c *ScriptedConfirmer) Confirm(message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Asked = append(c.Asked, message)
	if len(c.Answers) == 0 {
		return c.Default
	}
	answer := c.Answers[0]
	c.Answers = c.Answers[1:]
	return answer
}

func (c *ScriptedConfirmer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Asked)
}
