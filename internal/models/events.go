package models

import (
	"fmt"
	"time"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

func ParseOp(s string) (Op, error) {
	switch Op(s) {
	case OpInsert, OpUpdate, OpDelete:
		return Op(s), nil
	case "replace":
		return OpUpdate, nil
	}
	return "", fmt.Errorf("unknown change op %q", s)
}

// ChangeEvent is a single row-level change. Record is the zero value on delete.
type ChangeEvent[R Record] struct {
	Op          Op
	ID          string
	Record      R
	ClusterTime time.Time
}
