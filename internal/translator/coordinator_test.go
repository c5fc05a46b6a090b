package translator

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/pkg/overlay"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	mockprovider "github.com/nerdneilsfield/go-doc-translator/pkg/providers/mock"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// fakeExtractor 内存中的提取器
type fakeExtractor struct {
	text       string
	textErr    error
	rasterErr  error
	regions    []overlay.TextRegion
	regionsErr error
}

func (f *fakeExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	return f.text, f.textErr
}

func (f *fakeExtractor) Rasterize(ctx context.Context, path string, page int) (*image.RGBA, error) {
	if f.rasterErr != nil {
		return nil, f.rasterErr
	}
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img, nil
}

func (f *fakeExtractor) DetectRegions(ctx context.Context, img image.Image) ([]overlay.TextRegion, error) {
	return f.regions, f.regionsErr
}

// noAutoProvider 不支持自动检测的提供商
type noAutoProvider struct {
	*mockprovider.Provider
}

func (p noAutoProvider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{}
}

// switchableProvider 可以切换为不可用的在线提供商
type switchableProvider struct {
	mu    sync.Mutex
	down  bool
	text  string
	calls int
}

func (p *switchableProvider) setDown(down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.down = down
}

func (p *switchableProvider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.down {
		return nil, providers.NewError(providers.ErrCodeServer, "service unavailable")
	}
	return &providers.ProviderResponse{Text: p.text}, nil
}

func (p *switchableProvider) GetName() string { return "libretranslate" }

func (p *switchableProvider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{SupportsAutoDetect: true}
}

// progressRecorder 记录进度回调
type progressRecorder struct {
	mu      sync.Mutex
	percent []int
}

func (r *progressRecorder) record(p int, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.percent = append(r.percent, p)
}

func newCoordinator(t *testing.T, p providers.Provider, options ...Option) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(p, DefaultOptions(), options...)
	require.NoError(t, err)
	return c
}

func TestNewCoordinatorRequiresProvider(t *testing.T) {
	_, err := NewCoordinator(nil, DefaultOptions())
	assert.Error(t, err)
}

func TestNewCoordinatorFillsDefaults(t *testing.T) {
	c, err := NewCoordinator(mockprovider.New(mockprovider.Config{}), Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), c.opts)
}

func TestRunRawText(t *testing.T) {
	p := mockprovider.New(mockprovider.Config{})
	c := newCoordinator(t, p)
	rec := &progressRecorder{}

	res, err := c.Run(context.Background(), NewJob("", "Hello world", "en", "es"), rec.record)
	require.NoError(t, err)

	assert.Equal(t, "Hola mundo", res.TranslatedText)
	assert.Equal(t, "en", res.SourceLanguage)
	assert.Equal(t, "es", res.TargetLanguage)
	assert.Empty(t, res.Notes)
	assert.Equal(t, 1, res.Usage.Calls)
	assert.Equal(t, 1, res.Usage.Providers["mock"])

	require.NotEmpty(t, rec.percent)
	assert.Equal(t, 100, rec.percent[len(rec.percent)-1])
	for i := 1; i < len(rec.percent); i++ {
		assert.GreaterOrEqual(t, rec.percent[i], rec.percent[i-1], "progress must not go backwards")
	}
}

func TestRunNormalizesLanguageNames(t *testing.T) {
	c := newCoordinator(t, mockprovider.New(mockprovider.Config{}))

	res, err := c.Run(context.Background(), NewJob("", "Hello world", "English", "Spanish"), nil)
	require.NoError(t, err)
	assert.Equal(t, "en", res.SourceLanguage)
	assert.Equal(t, "es", res.TargetLanguage)
}

func TestRunSameLanguage(t *testing.T) {
	p := mockprovider.New(mockprovider.Config{})
	c := newCoordinator(t, p)

	res, err := c.Run(context.Background(), NewJob("", "Hello world", "en", "en"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", res.TranslatedText)
	assert.Contains(t, res.Notes, NoteSameLanguage)
	assert.Zero(t, p.Calls())
}

func TestRunValidation(t *testing.T) {
	c, err := NewCoordinator(mockprovider.New(mockprovider.Config{}), Options{MaxTextLength: 10})
	require.NoError(t, err)

	tests := []struct {
		name string
		job  Job
		want error
	}{
		{"missing target", NewJob("", "hi", "en", ""), translation.ErrUnsupportedLanguage},
		{"unknown target", NewJob("", "hi", "en", "zz-nonsense-qq"), translation.ErrUnsupportedLanguage},
		{"blank text", NewJob("", "   ", "en", "es"), translation.ErrEmptyText},
		{"no input", NewJob("", "", "en", "es"), translation.ErrEmptyText},
		{"too long", NewJob("", strings.Repeat("a", 11), "en", "es"), translation.ErrTextTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Run(context.Background(), tt.job, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRunAllFailed(t *testing.T) {
	p := mockprovider.New(mockprovider.Config{FailWhen: func(string) bool { return true }})
	c := newCoordinator(t, p)

	_, err := c.Run(context.Background(), NewJob("", "one\n\ntwo", "en", "es"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, translation.ErrTranslationUnavailable)
}

func TestRunPartialFailure(t *testing.T) {
	p := mockprovider.New(mockprovider.Config{FailWhen: func(text string) bool { return strings.Contains(text, "broken") }})
	c := newCoordinator(t, p)

	res, err := c.Run(context.Background(), NewJob("", "Hello world\n\nbroken paragraph", "en", "es"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo\n\nbroken paragraph", res.TranslatedText)
	assert.Contains(t, res.Notes, NoteApproximate)
	assert.Equal(t, 1, res.Report.Failed)
}

func TestRunCanceled(t *testing.T) {
	c := newCoordinator(t, mockprovider.New(mockprovider.Config{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx, NewJob("", "Hello world", "en", "es"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunResolvesAutoWhenProviderCannotDetect(t *testing.T) {
	p := mockprovider.New(mockprovider.Config{})
	c := newCoordinator(t, noAutoProvider{p})

	res, err := c.Run(context.Background(), NewJob("", "你好世界", "auto", "en"), nil)
	require.NoError(t, err)
	assert.Equal(t, "zh", res.DetectedLanguage)
	assert.Equal(t, "zh", res.SourceLanguage)
	assert.Equal(t, "Hello world", res.TranslatedText)

	reqs := p.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "zh", reqs[0].SourceLanguage)
}

func TestRunKeepsAutoForDetectingProvider(t *testing.T) {
	p := mockprovider.New(mockprovider.Config{})
	c := newCoordinator(t, p)

	res, err := c.Run(context.Background(), NewJob("", "你好世界", "", "en"), nil)
	require.NoError(t, err)
	assert.Equal(t, translation.AutoDetect, res.SourceLanguage)
	assert.Equal(t, "zh", res.DetectedLanguage)
	assert.Equal(t, translation.AutoDetect, p.Requests()[0].SourceLanguage)
}

func TestRunFromFile(t *testing.T) {
	ext := &fakeExtractor{text: "Hello world"}
	c := newCoordinator(t, mockprovider.New(mockprovider.Config{}), WithExtractor(ext))

	res, err := c.Run(context.Background(), NewJob("doc.txt", "", "en", "fr"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", res.OriginalText)
	assert.Equal(t, "Bonjour le monde", res.TranslatedText)
}

func TestRunExtractionError(t *testing.T) {
	ext := &fakeExtractor{textErr: errors.New("unreadable")}
	c := newCoordinator(t, mockprovider.New(mockprovider.Config{}), WithExtractor(ext))

	_, err := c.Run(context.Background(), NewJob("doc.pdf", "", "en", "fr"), nil)
	assert.EqualError(t, err, "unreadable")
}

func TestRunWithoutExtractor(t *testing.T) {
	c := newCoordinator(t, mockprovider.New(mockprovider.Config{}))

	_, err := c.Run(context.Background(), NewJob("doc.pdf", "", "en", "fr"), nil)
	assert.Error(t, err)
}

func newTestRenderer(t *testing.T) *overlay.Renderer {
	t.Helper()
	r, err := overlay.NewRenderer(overlay.DefaultRenderOptions())
	require.NoError(t, err)
	return r
}

func TestRunVisual(t *testing.T) {
	ext := &fakeExtractor{
		text: "Hello world\n\nSecond line",
		regions: []overlay.TextRegion{
			{SourceText: "Hello world", Box: overlay.Box{X0: 20, Y0: 20, X1: 220, Y1: 60}},
			{SourceText: "Second line", Box: overlay.Box{X0: 20, Y0: 100, X1: 220, Y1: 140}},
		},
	}
	p := mockprovider.New(mockprovider.Config{})
	c := newCoordinator(t, p, WithExtractor(ext), WithRenderer(newTestRenderer(t)))

	job := NewJob("scan.png", "", "en", "es")
	job.Visual = true
	res, err := c.Run(context.Background(), job, nil)
	require.NoError(t, err)

	require.NotNil(t, res.RenderedImage)
	require.Len(t, res.Regions, 2)
	assert.Equal(t, "Hola mundo", res.Regions[0].EffectiveText())
	assert.Equal(t, "[ES] Second line", res.Regions[1].EffectiveText())
	require.NotNil(t, res.Render)
	assert.Equal(t, 2, res.Render.Rendered)
	require.NotNil(t, res.RegionReport)
	assert.Equal(t, 1, res.RegionReport.Requests, "regions are batched into one request")
}

func TestRunVisualFailureKeepsText(t *testing.T) {
	ext := &fakeExtractor{text: "Hello world", rasterErr: errors.New("no pages")}
	c := newCoordinator(t, mockprovider.New(mockprovider.Config{}), WithExtractor(ext), WithRenderer(newTestRenderer(t)))

	job := NewJob("scan.pdf", "", "en", "es")
	job.Visual = true
	res, err := c.Run(context.Background(), job, nil)
	require.NoError(t, err)

	assert.Equal(t, "Hola mundo", res.TranslatedText)
	assert.Nil(t, res.RenderedImage)
	require.Len(t, res.Notes, 1)
	assert.Contains(t, res.Notes[0], "visual overlay unavailable")
	assert.Contains(t, res.Notes[0], "no pages")
}

func TestRunVisualNoRegions(t *testing.T) {
	ext := &fakeExtractor{text: "Hello world"}
	c := newCoordinator(t, mockprovider.New(mockprovider.Config{}), WithExtractor(ext), WithRenderer(newTestRenderer(t)))

	job := NewJob("blank.png", "", "en", "es")
	job.Visual = true
	res, err := c.Run(context.Background(), job, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Notes, NoteNoRegions)
	assert.NotNil(t, res.RenderedImage)
}

func TestRunVisualRawText(t *testing.T) {
	c := newCoordinator(t, mockprovider.New(mockprovider.Config{}))

	job := NewJob("", "Hello world", "en", "es")
	job.Visual = true
	res, err := c.Run(context.Background(), job, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Notes, NoteVisualNeedsFile)
}

func TestRunUsesCache(t *testing.T) {
	p := mockprovider.New(mockprovider.Config{})
	cache := translation.NewMemoryCache()
	c := newCoordinator(t, p, WithCache(cache))

	_, err := c.Run(context.Background(), NewJob("", "Hello world", "en", "es"), nil)
	require.NoError(t, err)
	res, err := c.Run(context.Background(), NewJob("", "Hello world", "en", "es"), nil)
	require.NoError(t, err)

	assert.Equal(t, "Hola mundo", res.TranslatedText)
	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, int64(1), res.CacheHits)
	assert.Zero(t, res.Usage.Calls)
}

func TestGenerateSummary(t *testing.T) {
	p := mockprovider.New(mockprovider.Config{FailWhen: func(text string) bool { return strings.Contains(text, "broken") }})
	c := newCoordinator(t, p)

	res, err := c.Run(context.Background(), NewJob("", "Hello world\n\nbroken", "en", "es"), nil)
	require.NoError(t, err)

	s := GenerateSummary(res, "in.txt", "out.txt")
	assert.Equal(t, 2, s.TotalUnits)
	assert.Equal(t, 1, s.FailedUnits)
	assert.Equal(t, 1, s.ErrorTypes[translation.ErrCodeProvider])
	assert.Equal(t, []string{"out.txt"}, s.OutputFiles)

	md := s.FormatSummaryMarkdown()
	assert.Contains(t, md, "| Languages | en -> es |")
	assert.Contains(t, md, "- "+NoteApproximate)
}

// mockExtractor 记录调用参数的提取器
type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	args := m.Called(path)
	return args.String(0), args.Error(1)
}

func (m *mockExtractor) Rasterize(ctx context.Context, path string, page int) (*image.RGBA, error) {
	args := m.Called(path, page)
	img, _ := args.Get(0).(*image.RGBA)
	return img, args.Error(1)
}

func (m *mockExtractor) DetectRegions(ctx context.Context, img image.Image) ([]overlay.TextRegion, error) {
	args := m.Called(img)
	regions, _ := args.Get(0).([]overlay.TextRegion)
	return regions, args.Error(1)
}

func TestRunVisualUsesRequestedPage(t *testing.T) {
	page := image.NewRGBA(image.Rect(0, 0, 100, 50))
	ext := &mockExtractor{}
	ext.On("ExtractText", "book.pdf").Return("Hello world", nil).Once()
	ext.On("Rasterize", "book.pdf", 2).Return(page, nil).Once()
	ext.On("DetectRegions", mock.AnythingOfType("*image.RGBA")).Return([]overlay.TextRegion(nil), nil).Once()

	c := newCoordinator(t, mockprovider.New(mockprovider.Config{}), WithExtractor(ext), WithRenderer(newTestRenderer(t)))

	job := NewJob("book.pdf", "", "en", "es")
	job.Visual = true
	job.PageIndex = 2
	res, err := c.Run(context.Background(), job, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Notes, NoteNoRegions)
	ext.AssertExpectations(t)
}

func TestRunDoesNotCacheOfflineFallback(t *testing.T) {
	online := &switchableProvider{down: true, text: "Buenos días a todos."}
	chain := providers.NewChain(nil, online, mockprovider.New(mockprovider.Config{}))
	cache := translation.NewMemoryCache()
	c := newCoordinator(t, chain, WithCache(cache))
	ctx := context.Background()

	res, err := c.Run(ctx, NewJob("", "Good morning everyone.", "en", "es"), nil)
	require.NoError(t, err)
	assert.Equal(t, "[ES] Good morning everyone.", res.TranslatedText)
	assert.Contains(t, res.Notes, NoteApproximate)
	assert.Equal(t, 1, res.Report.Approximated)
	assert.Zero(t, res.Report.Failed)
	assert.Zero(t, cache.Stats().Size)
	assert.Equal(t, map[string]int{"mock": 1}, res.Usage.Providers)

	online.setDown(false)
	res, err = c.Run(ctx, NewJob("", "Good morning everyone.", "en", "es"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Buenos días a todos.", res.TranslatedText)
	assert.Zero(t, res.CacheHits)
	assert.NotContains(t, res.Notes, NoteApproximate)

	res, err = c.Run(ctx, NewJob("", "Good morning everyone.", "en", "es"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Buenos días a todos.", res.TranslatedText)
	assert.Equal(t, int64(1), res.CacheHits)
	assert.Equal(t, 2, online.calls)
}

func TestRunVisualOfflineFallbackIsApproximate(t *testing.T) {
	ext := &fakeExtractor{
		text: "Good morning",
		regions: []overlay.TextRegion{
			{SourceText: "Hello world", Box: overlay.Box{X0: 20, Y0: 20, X1: 220, Y1: 60}},
			{SourceText: "Second line", Box: overlay.Box{X0: 20, Y0: 100, X1: 220, Y1: 140}},
		},
	}
	online := &switchableProvider{down: true}
	chain := providers.NewChain(nil, online, mockprovider.New(mockprovider.Config{}))
	c := newCoordinator(t, chain, WithExtractor(ext), WithRenderer(newTestRenderer(t)))

	job := NewJob("scan.png", "", "en", "es")
	job.Visual = true
	res, err := c.Run(context.Background(), job, nil)
	require.NoError(t, err)

	require.Len(t, res.Regions, 2)
	assert.Equal(t, "Hola mundo", res.Regions[0].EffectiveText())
	assert.Equal(t, "[ES] Second line", res.Regions[1].EffectiveText())
	require.NotNil(t, res.RegionReport)
	assert.Equal(t, 2, res.RegionReport.Approximated)
	assert.Equal(t, 1, res.RegionReport.Requests)
	assert.Contains(t, res.Notes, NoteApproximate)

	s := GenerateSummary(res, "scan.png")
	assert.Equal(t, 3, s.ApproximateUnits)
}
