package registry

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagedi/stagedi"
)

type conn struct{ dsn string }

func openConn(dsn string) conn { return conn{dsn: dsn} }

func TestRegisterAndLookup(t *testing.T) {
	t.Parallel()
	r := New()
	dsnKey := stagedi.NewKey(stagedi.TagFor[string]())
	require.NoError(t, r.Register(reflect.TypeOf(conn{}), openConn, []stagedi.Key{dsnKey}))

	e, err := r.Lookup(reflect.TypeOf(conn{}))
	require.NoError(t, err)
	assert.Equal(t, []stagedi.Key{dsnKey}, e.Dependencies)
	assert.True(t, r.Has(reflect.TypeOf(conn{})))
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	t.Parallel()
	r := New()
	require.NoError(t, r.Register(reflect.TypeOf(conn{}), openConn, nil))
	err := r.Register(reflect.TypeOf(conn{}), openConn, nil)
	require.Error(t, err)
	var dup *AlreadyRegisteredError
	require.ErrorAs(t, err, &dup)
}

func TestLookupUnknownType(t *testing.T) {
	t.Parallel()
	r := New()
	_, err := r.Lookup(reflect.TypeOf(conn{}))
	require.Error(t, err)
	var notFound *NotRegisteredError
	require.ErrorAs(t, err, &notFound)
}

type dbParams struct {
	DSN  string `stagedi:""`
	Pool int    `stagedi:"poolSize"`
	note string //nolint:unused // untagged field must be ignored by the walk
}

type db struct {
	dsn  string
	pool int
}

func openDB(p dbParams) db { return db{dsn: p.DSN, pool: p.Pool} }

func TestRegisterByFieldsDerivesDependenciesFromStructTags(t *testing.T) {
	t.Parallel()
	r := New()
	require.NoError(t, r.RegisterByFields(openDB))

	e, err := r.Lookup(reflect.TypeOf(db{}))
	require.NoError(t, err)
	require.Len(t, e.Dependencies, 2)
	assert.Equal(t, stagedi.NewKey(stagedi.TagFor[string]()), e.Dependencies[0])
	assert.Equal(t, stagedi.NewNamedKey(stagedi.TagFor[int](), "poolSize"), e.Dependencies[1])

	f, err := r.FunctoidFromType(reflect.TypeOf(db{}))
	require.NoError(t, err)
	v, err := f.Invoke([]any{"dsn://example", 5})
	require.NoError(t, err)
	assert.Equal(t, db{dsn: "dsn://example", pool: 5}, v)
}

func TestRegisterByFieldsRejectsNonStructParameter(t *testing.T) {
	t.Parallel()
	r := New()
	err := r.RegisterByFields(func(s string) db { return db{dsn: s} })
	require.Error(t, err)
}

func TestFunctoidFromTypeBuildsUsableFunctoid(t *testing.T) {
	t.Parallel()
	r := New()
	dsnKey := stagedi.NewKey(stagedi.TagFor[string]())
	require.NoError(t, r.Register(reflect.TypeOf(conn{}), openConn, []stagedi.Key{dsnKey}))

	f, err := r.FunctoidFromType(reflect.TypeOf(conn{}))
	require.NoError(t, err)
	v, err := f.Invoke([]any{"dsn://example"})
	require.NoError(t, err)
	assert.Equal(t, conn{dsn: "dsn://example"}, v)
}
