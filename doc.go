/*

Package stagedi is a staged dependency-injection container.  Given a
declarative description of how each component of an application is
constructed (its Bindings, grouped into a Module) and a set of root Keys the
caller wants, the container computes an execution Plan, validates it, and
then materialises a graph of singletons.

The library exists so that misconfiguration is caught at planning time --
before any constructor runs -- and so that a handful of advanced wiring
patterns (conditional bindings selected by an Activation, collection
bindings that accumulate contributions from many call sites, weak elements
that are silently dropped when their dependencies are unavailable, and
nested scopes) do not have to be hand rolled.

How to use

Bindings are collected into a Module:

	db := stagedi.NewKey(stagedi.TagFor[*sql.DB]())
	cfg := stagedi.NewKey(stagedi.TagFor[Config]())

	cfgBinding, _ := stagedi.NewInstance(cfg, Config{DSN: "..."}, stagedi.BindingTags{})
	openDB, _ := stagedi.FromCallable(OpenDB, []stagedi.Key{cfg})
	dbBinding, _ := stagedi.NewClass(db, openDB, stagedi.BindingTags{})
	mod := stagedi.NewModule(cfgBinding, dbBinding)

	inj := stagedi.NewInjector(mod, stagedi.Activation{})
	loc, err := inj.Produce(context.Background(), db)
	if err != nil {
		log.Fatal(stagedi.DetailedError(err))
	}
	conn, err := stagedi.GetAs[*sql.DB](loc, db)

Conditional bindings

An Axis names a finite set of choices (for example an "Env" axis with
choices "Prod" and "Dev").  Bindings may be tagged with AxisPoints; the
Planner resolves the most specific tagged binding that is consistent with
the caller-supplied Activation and with the tags already fixed by the
current resolution path.  See Planner for the full selection algorithm.

Collection bindings

Binding a Key as a set-element (see NewSetElement) contributes one value to
a collection keyed by the set-of variant of that Key's TypeTag.  All
matching set-element bindings accumulate; they are never overridden by
Module.OverriddenBy.  A set-element may be marked weak, in which case the
Planner silently drops it (rather than failing the whole Plan) if its own
dependencies cannot be resolved.

Scopes

Producer.Produce returns a Locator.  A Locator may be composed with a
Module and an additional set of roots via CreateSubcontext to build a
nested scope: lookups fall back to the parent Locator, and collection
lookups merge parent and child contributions.

Errors

Planning failures are always one of the typed errors in this package:
MissingDependencyError, CircularDependencyError, ConflictingBindingsError,
or AxisConflictError.  DetailedError renders a human legible trace for any
of them: the resolution path that led to the failing Key, and, for
ConflictingBindingsError, every candidate that was equally specific.

*/
package stagedi
