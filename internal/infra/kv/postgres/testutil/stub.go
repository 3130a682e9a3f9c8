// Package testutil fakes just enough of a SQL server for the postgres
// key/value store: one kv table addressed by the statements the store
// issues.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

var driverSeq atomic.Int64

// Failure points a test can switch on.
type Failure string

const (
	FailPing   Failure = "ping"
	FailBegin  Failure = "begin"
	FailExec   Failure = "exec"
	FailQuery  Failure = "query"
	FailCommit Failure = "commit"
)

// KVConn is the single connection behind a stub database. It keeps the kv
// table as a map and logs statements in execution order.
type KVConn struct {
	mu         sync.Mutex
	rows       map[string]string
	statements []string
	failing    map[Failure]bool
}

// NewKVStub registers a driver under a unique name and opens it.
func NewKVStub() (*sql.DB, *KVConn) {
	conn := &KVConn{rows: map[string]string{}, failing: map[Failure]bool{}}
	name := fmt.Sprintf("famtree-kv-stub-%d", driverSeq.Add(1))
	sql.Register(name, kvDriver{conn})
	db, err := sql.Open(name, "")
	if err != nil {
		panic(err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

// Fail toggles a failure point.
func (c *KVConn) Fail(f Failure, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing[f] = on
}

// Put writes a row without going through SQL.
func (c *KVConn) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[key] = value
}

// Lookup reads a row.
func (c *KVConn) Lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.rows[key]
	return v, ok
}

// Len returns the number of rows.
func (c *KVConn) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

// Statements returns the executed statements, normalised to their first
// two words in upper case ("CREATE TABLE", "INSERT INTO", "DELETE FROM").
func (c *KVConn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.statements)
}

func (c *KVConn) fails(f Failure) error {
	if c.failing[f] {
		return fmt.Errorf("stub: %s failed", f)
	}
	return nil
}

type kvDriver struct{ conn *KVConn }

func (d kvDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn; every call goes through the context paths.
func (c *KVConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("stub: prepared statements unsupported")
}

// Close implements driver.Conn.
func (c *KVConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *KVConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx implements driver.ConnBeginTx.
func (c *KVConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fails(FailBegin); err != nil {
		return nil, err
	}
	return kvTx{c}, nil
}

// Ping implements driver.Pinger.
func (c *KVConn) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fails(FailPing)
}

// ExecContext implements driver.ExecerContext.
func (c *KVConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	verb := statementVerb(query)
	c.statements = append(c.statements, verb)
	if err := c.fails(FailExec); err != nil {
		return nil, err
	}
	switch verb {
	case "CREATE TABLE":
		return driver.RowsAffected(0), nil
	case "INSERT INTO":
		if len(args) != 2 {
			return nil, fmt.Errorf("stub: insert wants 2 args, got %d", len(args))
		}
		c.rows[fmt.Sprint(args[0].Value)] = fmt.Sprint(args[1].Value)
		return driver.RowsAffected(1), nil
	case "DELETE FROM":
		if len(args) != 1 {
			return nil, fmt.Errorf("stub: delete wants 1 arg, got %d", len(args))
		}
		key := fmt.Sprint(args[0].Value)
		if _, ok := c.rows[key]; !ok {
			return driver.RowsAffected(0), nil
		}
		delete(c.rows, key)
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("stub: unsupported statement %q", query)
}

// QueryContext implements driver.QueryerContext. Only the full-table key,
// value scan is understood; rows come back sorted by key.
func (c *KVConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fails(FailQuery); err != nil {
		return nil, err
	}
	if statementVerb(query) != "SELECT KEY," {
		return nil, fmt.Errorf("stub: unsupported query %q", query)
	}
	keys := make([]string, 0, len(c.rows))
	for k := range c.rows {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := &kvRows{}
	for _, k := range keys {
		out.data = append(out.data, [2]string{k, c.rows[k]})
	}
	return out, nil
}

func statementVerb(query string) string {
	fields := strings.Fields(strings.ToUpper(query))
	if len(fields) < 2 {
		return strings.Join(fields, " ")
	}
	return fields[0] + " " + fields[1]
}

type kvTx struct{ conn *KVConn }

func (t kvTx) Commit() error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	return t.conn.fails(FailCommit)
}

func (kvTx) Rollback() error { return nil }

type kvRows struct {
	data [][2]string
	pos  int
}

func (*kvRows) Columns() []string { return []string{"key", "value"} }
func (*kvRows) Close() error      { return nil }

func (r *kvRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	dest[0], dest[1] = r.data[r.pos][0], r.data[r.pos][1]
	r.pos++
	return nil
}
