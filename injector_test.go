package stagedi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduceOneResolvesAndTypeAsserts(t *testing.T) {
	t.Parallel()
	key := NewKey(TagFor[widget]())
	tmp1B, tmp1E := NewInstance(key, widget{Name: "one"}, BindingTags{})
	tmp1 := bindingOrFail(t, tmp1B, tmp1E)
	mod := NewModule(tmp1)
	inj := NewInjector(mod, Activation{})

	v, err := ProduceOne[widget](context.Background(), inj, key)
	require.NoError(t, err)
	assert.Equal(t, widget{Name: "one"}, v)
}

func TestProduceOneWrongTypeErrors(t *testing.T) {
	t.Parallel()
	key := NewKey(TagFor[widget]())
	tmp2B, tmp2E := NewInstance(key, widget{Name: "one"}, BindingTags{})
	tmp2 := bindingOrFail(t, tmp2B, tmp2E)
	mod := NewModule(tmp2)
	inj := NewInjector(mod, Activation{})

	_, err := ProduceOne[string](context.Background(), inj, key)
	require.Error(t, err)
}

func TestWithLoggerReportsDroppedWeakElement(t *testing.T) {
	t.Parallel()
	tag := TagFor[widget]()
	collectionKey := SetKey(tag, "", false)

	brokenFn, err := FromCallable(func() (widget, error) {
		return widget{}, assert.AnError
	}, nil)
	require.NoError(t, err)
	tmp3B, tmp3E := NewFactory(NewKey(tag), brokenFn, BindingTags{})
	tmp3 := bindingOrFail(t, tmp3B, tmp3E)
	brokenInner := tmp3
	tmp4B, tmp4E := NewSetElement(NewKey(tag), brokenInner, true, BindingTags{})
	tmp4 := bindingOrFail(t, tmp4B, tmp4E)
	weakElem := tmp4

	var logged []string
	lg := &recordingLogger{warn: &logged}

	mod := NewModule(weakElem)
	inj := NewInjector(mod, Activation{}).WithLogger(lg)
	loc, err := inj.Produce(context.Background(), collectionKey)
	require.NoError(t, err)

	vals := loc.GetSet(tag, "", false)
	assert.Empty(t, vals)
	assert.NotEmpty(t, logged)
}

func TestWithAutoRootsProducesEveryModuleKeyWithoutExplicitRoots(t *testing.T) {
	t.Parallel()
	widgetKey := NewKey(TagFor[widget]())
	loggerKey := NewKey(TagFor[logger]())
	tmp5B, tmp5E := NewInstance(widgetKey, widget{Name: "auto"}, BindingTags{})
	tmp5 := bindingOrFail(t, tmp5B, tmp5E)
	tmp6B, tmp6E := NewInstance(loggerKey, logger{prefix: "auto"}, BindingTags{})
	tmp6 := bindingOrFail(t, tmp6B, tmp6E)
	mod := NewModule(
		tmp5,
		tmp6,
	)
	inj := NewInjector(mod, Activation{}).WithAutoRoots()

	loc, err := inj.Produce(context.Background())
	require.NoError(t, err)

	w, err := GetAs[widget](loc, widgetKey)
	require.NoError(t, err)
	assert.Equal(t, widget{Name: "auto"}, w)

	lg, err := GetAs[logger](loc, loggerKey)
	require.NoError(t, err)
	assert.Equal(t, logger{prefix: "auto"}, lg)
}

func TestWithoutAutoRootsExplicitRootsOnlyProduceWhatIsAsked(t *testing.T) {
	t.Parallel()
	widgetKey := NewKey(TagFor[widget]())
	loggerKey := NewKey(TagFor[logger]())
	tmp7B, tmp7E := NewInstance(widgetKey, widget{Name: "w"}, BindingTags{})
	tmp7 := bindingOrFail(t, tmp7B, tmp7E)
	tmp8B, tmp8E := NewInstance(loggerKey, logger{prefix: "l"}, BindingTags{})
	tmp8 := bindingOrFail(t, tmp8B, tmp8E)
	mod := NewModule(
		tmp7,
		tmp8,
	)
	inj := NewInjector(mod, Activation{})

	loc, err := inj.Produce(context.Background(), widgetKey)
	require.NoError(t, err)

	_, err = GetAs[logger](loc, loggerKey)
	require.Error(t, err, "a Key not passed as a root and not depended on by one must not be produced")
}

func TestCreateSubcontextWithNilParentPlansIndependently(t *testing.T) {
	t.Parallel()
	key := NewKey(TagFor[widget]())
	tmp9B, tmp9E := NewInstance(key, widget{Name: "root"}, BindingTags{})
	tmp9 := bindingOrFail(t, tmp9B, tmp9E)
	mod := NewModule(tmp9)
	inj := NewInjector(NewModule(), Activation{})

	child, err := inj.CreateSubcontext(context.Background(), nil, mod, []Key{key}, Activation{})
	require.NoError(t, err)

	v, err := child.Get(key)
	require.NoError(t, err)
	assert.Equal(t, widget{Name: "root"}, v)
}

type recordingLogger struct {
	warn *[]string
}

func (l *recordingLogger) Debug(msg string, fields ...map[string]any) {}
func (l *recordingLogger) Warn(msg string, fields ...map[string]any) {
	*l.warn = append(*l.warn, msg)
}
func (l *recordingLogger) Error(msg string, fields ...map[string]any) {}
