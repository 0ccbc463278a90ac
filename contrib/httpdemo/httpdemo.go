// Package httpdemo wires a gorilla/mux Router out of a stagedi Module:
// each route is contributed independently as a set-element binding, an
// Axis picks the Db implementation per environment, and the request
// handler is an AssistedFactory curried over *http.Request so the Router
// is built once, not once per request.
package httpdemo

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v2"

	"github.com/stagedi/stagedi"
)

// Db is the dependency the demo's one route needs: something that can
// look up a greeting by name.
type Db interface {
	Greeting(name string) (string, error)
}

// RouteInstaller contributes one route to the Router being assembled.
// Bindings for this type are collected through the set-of(RouteInstaller)
// collection Key (mirrors S4/S7's plugin-style accumulation).
type RouteInstaller interface {
	Install(r *mux.Router)
}

// GreetingHandler is the curried closure an AssistedFactory binding
// produces: the leading argument (*http.Request) is supplied per call,
// while Db is resolved fresh against the Locator each time it is called.
type GreetingHandler func(*http.Request) (http.HandlerFunc, error)

var (
	dbTag             = stagedi.TagFor[Db]()
	routeInstallerTag = stagedi.TagFor[RouteInstaller]()
	routerTag         = stagedi.TagFor[*mux.Router]()
	configTag         = stagedi.TagFor[Config]()
	handlerTag        = stagedi.TagFor[GreetingHandler]()
	requestTag        = stagedi.TagFor[*http.Request]()
	metricsDbTag      = stagedi.TagFor[metricsDb]()
)

// metricsDb is deliberately never bound by Module: it stands in for an
// optional dependency an operator's environment may or may not provide.
// The metrics route installer that needs it is bound weak, so its absence
// only drops that one route instead of failing the whole Plan -- and
// gives BuildRouter's logger something real to report.
type metricsDb interface{ Snapshot() map[string]float64 }

// DbKey is the Key route installers depend on for their Db.
func DbKey() stagedi.Key { return stagedi.NewKey(dbTag) }

// RouterKey is the Key the assembled *mux.Router is produced at.
func RouterKey() stagedi.Key { return stagedi.NewKey(routerTag) }

// ConfigKey is the Key the demo's Config is produced at.
func ConfigKey() stagedi.Key { return stagedi.NewKey(configTag) }

func handlerKey() stagedi.Key          { return stagedi.NewKey(handlerTag) }
func installerElementKey() stagedi.Key { return stagedi.NewKey(routeInstallerTag) }

// EnvironmentAxis distinguishes which Db implementation the module
// selects: "prod" talks to a real store, "dev" serves canned data.
var EnvironmentAxis, environmentAxisErr = stagedi.NewAxis("environment", "prod", "dev")

// Config is loaded from YAML, mirroring the teaching corpus's use of
// gopkg.in/yaml.v2 for service configuration.
type Config struct {
	Greeting string `yaml:"greeting"`
}

// ParseConfig decodes a YAML document into a Config.
func ParseConfig(doc []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(doc, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

type devDb struct{ cfg Config }

func (d devDb) Greeting(name string) (string, error) { return d.cfg.Greeting + ", " + name, nil }

type prodDb struct{ cfg Config }

func (d prodDb) Greeting(name string) (string, error) {
	// A real deployment would query a datastore here; the demo only
	// needs to show that an Axis choice swaps this binding in.
	return d.cfg.Greeting + ", " + name + " (prod)", nil
}

type greetingInstaller struct{ handler GreetingHandler }

func (g greetingInstaller) Install(r *mux.Router) {
	r.HandleFunc("/greet/{name}", func(w http.ResponseWriter, req *http.Request) {
		h, err := g.handler(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h(w, req)
	})
}

type metricsInstaller struct{ db metricsDb }

func (m metricsInstaller) Install(r *mux.Router) {
	r.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		for k, v := range m.db.Snapshot() {
			fmt.Fprintf(w, "%s %g\n", k, v)
		}
	})
}

func greetingHTTPHandler(req *http.Request, db Db) (http.HandlerFunc, error) {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		greeting, err := db.Greeting(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(greeting))
	}, nil
}

func buildRouter(installers []any) (*mux.Router, error) {
	r := mux.NewRouter()
	for _, v := range installers {
		v.(RouteInstaller).Install(r)
	}
	return r, nil
}

// Module returns the demo's bindings. Db is bound twice, once per choice
// of EnvironmentAxis; the route installer and the Router itself are
// environment-agnostic, since they only ever depend on Db by Key.
func Module(cfg Config) (stagedi.Module, error) {
	if environmentAxisErr != nil {
		return stagedi.Module{}, environmentAxisErr
	}

	cfgBinding, err := stagedi.NewInstance(ConfigKey(), cfg, stagedi.BindingTags{})
	if err != nil {
		return stagedi.Module{}, err
	}

	prodTags, devTags, err := environmentTags()
	if err != nil {
		return stagedi.Module{}, err
	}

	prodDbFn, err := stagedi.FromTypes(func(c Config) Db { return prodDb{cfg: c} }, configTag)
	if err != nil {
		return stagedi.Module{}, err
	}
	devDbFn, err := stagedi.FromTypes(func(c Config) Db { return devDb{cfg: c} }, configTag)
	if err != nil {
		return stagedi.Module{}, err
	}
	prodDbBinding, err := stagedi.NewClass(DbKey(), prodDbFn, prodTags)
	if err != nil {
		return stagedi.Module{}, err
	}
	devDbBinding, err := stagedi.NewClass(DbKey(), devDbFn, devTags)
	if err != nil {
		return stagedi.Module{}, err
	}

	handlerFn, err := stagedi.FromTypes(greetingHTTPHandler, requestTag, dbTag)
	if err != nil {
		return stagedi.Module{}, err
	}
	handlerBinding, err := stagedi.NewAssistedFactory(handlerKey(), handlerFn, []string{"req"}, stagedi.BindingTags{})
	if err != nil {
		return stagedi.Module{}, err
	}

	installerFn, err := stagedi.FromTypes(
		func(h GreetingHandler) (RouteInstaller, error) { return greetingInstaller{handler: h}, nil },
		handlerTag,
	)
	if err != nil {
		return stagedi.Module{}, err
	}
	installerInner, err := stagedi.NewClass(installerElementKey(), installerFn, stagedi.BindingTags{})
	if err != nil {
		return stagedi.Module{}, err
	}
	installerBinding, err := stagedi.NewSetElement(installerElementKey(), installerInner, false, stagedi.BindingTags{})
	if err != nil {
		return stagedi.Module{}, err
	}

	metricsInstallerFn, err := stagedi.FromTypes(
		func(db metricsDb) (RouteInstaller, error) { return metricsInstaller{db: db}, nil },
		metricsDbTag,
	)
	if err != nil {
		return stagedi.Module{}, err
	}
	metricsInstallerInner, err := stagedi.NewClass(installerElementKey(), metricsInstallerFn, stagedi.BindingTags{})
	if err != nil {
		return stagedi.Module{}, err
	}
	metricsInstallerBinding, err := stagedi.NewSetElement(installerElementKey(), metricsInstallerInner, true, stagedi.BindingTags{})
	if err != nil {
		return stagedi.Module{}, err
	}

	routerFn, err := stagedi.FromCallable(
		func(installers []any) (*mux.Router, error) { return buildRouter(installers) },
		[]stagedi.Key{stagedi.SetKey(routeInstallerTag, "", false)},
	)
	if err != nil {
		return stagedi.Module{}, err
	}
	routerBinding, err := stagedi.NewFactory(RouterKey(), routerFn, stagedi.BindingTags{})
	if err != nil {
		return stagedi.Module{}, err
	}

	return stagedi.NewModule(cfgBinding, prodDbBinding, devDbBinding, handlerBinding, installerBinding, metricsInstallerBinding, routerBinding), nil
}

func environmentTags() (prod, dev stagedi.BindingTags, err error) {
	prodPoint, err := stagedi.NewAxisPoint(EnvironmentAxis, "prod")
	if err != nil {
		return stagedi.BindingTags{}, stagedi.BindingTags{}, err
	}
	devPoint, err := stagedi.NewAxisPoint(EnvironmentAxis, "dev")
	if err != nil {
		return stagedi.BindingTags{}, stagedi.BindingTags{}, err
	}
	prod, err = stagedi.NewBindingTags(prodPoint)
	if err != nil {
		return stagedi.BindingTags{}, stagedi.BindingTags{}, err
	}
	dev, err = stagedi.NewBindingTags(devPoint)
	if err != nil {
		return stagedi.BindingTags{}, stagedi.BindingTags{}, err
	}
	return prod, dev, nil
}

// BuildRouter plans and produces this demo's Module once under
// activation, returning the assembled *mux.Router and the Locator that
// built it (callers should Close the Locator on shutdown to release any
// lifecycle-managed resources Db acquired). Diagnostics -- currently just
// a weak route installer that failed to construct and was dropped -- are
// reported through std, defaulting to log.Default() when nil.
func BuildRouter(ctx context.Context, mod stagedi.Module, activation stagedi.Activation, std *log.Logger) (*mux.Router, *stagedi.Locator, error) {
	if std == nil {
		std = log.Default()
	}
	inj := stagedi.NewInjector(mod, activation).WithLogger(stagedi.LoggerFromStd(std))
	loc, err := inj.Produce(ctx, RouterKey())
	if err != nil {
		return nil, nil, err
	}
	router, err := stagedi.GetAs[*mux.Router](loc, RouterKey())
	if err != nil {
		return nil, nil, err
	}
	return router, loc, nil
}
