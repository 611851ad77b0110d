package storage

import (
	"strings"

	"github.com/ncruces/go-sqlite3"
	"golang.org/x/text/cases"
)

// RegisterFunctions adds the SQL functions used by search predicates to c.
//
//	icontains(haystack, needle)  1 when haystack contains needle, ignoring case
func RegisterFunctions(c *sqlite3.Conn) error {
	return c.CreateFunction("icontains", 2, sqlite3.DETERMINISTIC|sqlite3.INNOCUOUS, icontains)
}

func icontains(ctx sqlite3.Context, arg ...sqlite3.Value) {
	if arg[0].Type() == sqlite3.NULL || arg[1].Type() == sqlite3.NULL {
		ctx.ResultBool(false)
		return
	}
	ctx.ResultBool(ContainsFold(arg[0].Text(), arg[1].Text()))
}

// ContainsFold reports whether needle is within haystack under Unicode case
// folding.
func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(haystack), fold.String(needle))
}
