package memory

import "sync"

// Memory is a bounded transcript of the lines an agent saw and the actions it
// took. Once full, the oldest line is dropped.
type Memory struct {
	lines    []string
	capacity int
	mu       sync.RWMutex
}

// NewMemory creates a transcript holding at most capacity lines. A
// non-positive capacity keeps every line.
func NewMemory(capacity int) *Memory {
	if capacity < 0 {
		capacity = 0
	}
	return &Memory{
		lines:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Lines returns a copy of the transcript, oldest first.
func (m *Memory) Lines() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lines := make([]string, len(m.lines))
	copy(lines, m.lines)
	return lines
}

// Store appends a line, evicting the oldest if the transcript is full.
// Empty lines are ignored.
func (m *Memory) Store(line string) {
	if line == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lines = append(m.lines, line)
	if m.capacity > 0 && len(m.lines) > m.capacity {
		m.lines = m.lines[len(m.lines)-m.capacity:]
	}
}

// Len returns the number of stored lines.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lines)
}

// Capacity returns the maximum number of lines kept, or 0 if unbounded.
func (m *Memory) Capacity() int {
	return m.capacity
}

// Clear empties the transcript.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = m.lines[:0]
}
