package clog

import (
	"testing"

	"github.com/pkg/errors"
)

// TestingNewManager initializes a manager over a temporary directory
func TestingNewManager(t *testing.T) (*Manager, error) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		return nil, errors.Wrap(err, "NewManager failed")
	}
	return m, nil
}
