package cmd

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicateCommand is returned when a name is registered twice.
var ErrDuplicateCommand = errors.New("command already registered")

// Registry stores commands by name. It does not perform dispatch; each adapter
// looks up commands and invokes them with its own context.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds commands. Names are immutable once registered; a second
// command with the same name is rejected and nothing after it is added.
func (r *Registry) Register(cs ...Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cs {
		name := c.Name()
		if _, ok := r.commands[name]; ok {
			return fmt.Errorf("%s: %w", name, ErrDuplicateCommand)
		}
		r.commands[name] = c
	}
	return nil
}

// Get returns the command with the given name.
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[name]
	return c, ok
}

// GetAll returns all registered commands, sorted by name.
func (r *Registry) GetAll() []Command {
	r.mu.RLock()
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}
