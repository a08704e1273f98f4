package export

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrorsCounter collects reportable per-account failures of one run
type ErrorsCounter struct {
	mu       sync.Mutex
	log      io.Writer
	logger   *zap.Logger
	accounts map[string]struct{}
	groups   map[string]struct{}
	count    int
}

// NewErrorsCounter writes one "{account}: {message}" line per report to log
func NewErrorsCounter(log io.Writer, logger *zap.Logger) *ErrorsCounter {
	return &ErrorsCounter{
		log:      log,
		logger:   logger,
		accounts: make(map[string]struct{}),
		groups:   make(map[string]struct{}),
	}
}

// Error records a failure of an account. It never fails the caller.
func (c *ErrorsCounter) Error(accountNumber, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accounts[accountNumber] = struct{}{}
	c.count++
	if _, err := fmt.Fprintf(c.log, "%s: %s\n", accountNumber, message); err != nil {
		c.logger.Warn("Failed to write errors log", zap.Error(err))
	}
}

// Errorf records a formatted failure of an account
func (c *ErrorsCounter) Errorf(accountNumber, format string, args ...any) {
	c.Error(accountNumber, fmt.Sprintf(format, args...))
}

// NoGroup records a group name without a mapping
func (c *ErrorsCounter) NoGroup(accountNumber, groupName string) {
	c.mu.Lock()
	c.groups[groupName] = struct{}{}
	c.mu.Unlock()

	c.Error(accountNumber, fmt.Sprintf("no group map for %q", groupName))
}

// Accounts returns the number of distinct failing accounts
func (c *ErrorsCounter) Accounts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.accounts)
}

// Count returns the number of reports
func (c *ErrorsCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Groups returns distinct unmapped group names, sorted
func (c *ErrorsCounter) Groups() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	groups := make([]string, 0, len(c.groups))
	for g := range c.groups {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}
