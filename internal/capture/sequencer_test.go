package capture

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/cortex-screenshots/internal/capture/capturetest"
	"github.com/bobmcallan/cortex-screenshots/internal/common"
)

const (
	testBase    = "http://localhost:5173"
	testTopicID = "1420fda9-dad4-4ea2-876e-9e04891ef3ca"
)

var _ Page = (*capturetest.Page)(nil)
var _ ArtifactWriter = (*capturetest.Store)(nil)

type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.slept = append(r.slept, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestSequencer(page *capturetest.Page, store *capturetest.Store, out *bytes.Buffer) (*Sequencer, *sleepRecorder) {
	rec := &sleepRecorder{}
	opts := Options{
		BaseURL: testBase,
		Login:   DefaultLogin("admin@cortex.local", "admin123"),
		Steps: DefaultPlan(PlanParams{
			TopicID:     testTopicID,
			SearchQuery: "decision architecture",
			CSILinkText: "CSI Backtesting",
		}),
		IdleTimeout: 50 * time.Millisecond,
	}
	opts.Login.RedirectTimeout = 50 * time.Millisecond
	var progress *Progress
	if out != nil {
		progress = NewProgress(out)
	}
	seq := New(page, store, common.NewSilentLogger(), progress, opts).WithSleep(rec.sleep)
	return seq, rec
}

func allFiles() []string {
	return []string{
		TopicsOverviewFile,
		TopicDetailFile,
		TopicScorecardFile,
		TopicPipelineFile,
		DashboardFile,
		SearchFile,
		TopicCSIFile,
	}
}

func TestRun_FullPlanWritesEveryFileInOrder(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID)
	store := capturetest.NewStore()
	var out bytes.Buffer
	seq, _ := newTestSequencer(page, store, &out)

	report, err := seq.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !slices.Equal(report.Written, allFiles()) {
		t.Errorf("expected written %v, got %v", allFiles(), report.Written)
	}
	if len(report.Skipped) != 0 {
		t.Errorf("expected no skipped steps, got %v", report.Skipped)
	}
	if !slices.Equal(store.Names(), allFiles()) {
		t.Errorf("expected store files %v, got %v", allFiles(), store.Names())
	}
	for _, name := range store.Names() {
		if b, _ := store.Get(name); len(b) == 0 {
			t.Errorf("expected non-empty image for %s", name)
		}
	}
}

func TestRun_ProgressLines(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID)
	var out bytes.Buffer
	seq, _ := newTestSequencer(page, capturetest.NewStore(), &out)

	if _, err := seq.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{
		"Logging in...",
		"Capturing topics page...",
		"  -> topics-overview.png",
		"Capturing topic detail...",
		"  -> topic-detail.png",
		"Capturing scorecard...",
		"  -> topic-scorecard.png",
		"Capturing pipeline...",
		"  -> topic-pipeline.png",
		"Capturing dashboard...",
		"  -> dashboard.png",
		"Capturing search...",
		"  -> search.png",
		"Capturing CSI topic...",
		"  -> topic-csi.png",
	}
	got := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if !slices.Equal(got, want) {
		t.Errorf("unexpected progress output:\n got: %q\nwant: %q", got, want)
	}
}

func TestRun_SettleDurations(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID)
	seq, rec := newTestSequencer(page, capturetest.NewStore(), nil)

	if _, err := seq.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	ms := time.Millisecond
	want := []time.Duration{
		1000 * ms,            // login
		1500 * ms,            // topics
		2000 * ms,            // detail
		500 * ms, 500 * ms,   // scorecard scroll and offset
		500 * ms, 500 * ms,   // pipeline scroll and offset
		1500 * ms,            // dashboard
		500 * ms, 3000 * ms,  // search load and results
		1000 * ms, 2000 * ms, // topics reload and CSI detail
	}
	if !slices.Equal(rec.slept, want) {
		t.Errorf("expected pauses %v, got %v", want, rec.slept)
	}
}

func TestRun_WithoutCSILinkSkipsStep(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID).WithoutCSILink()
	store := capturetest.NewStore()
	var out bytes.Buffer
	seq, _ := newTestSequencer(page, store, &out)

	report, err := seq.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := allFiles()[:6]
	if !slices.Equal(report.Written, want) {
		t.Errorf("expected written %v, got %v", want, report.Written)
	}
	if !slices.Equal(report.Skipped, []string{"CSI topic"}) {
		t.Errorf("expected CSI topic skipped, got %v", report.Skipped)
	}
	if _, ok := store.Get(TopicCSIFile); ok {
		t.Error("topic-csi.png must not be written without the link")
	}
	if strings.Contains(out.String(), TopicCSIFile) {
		t.Errorf("progress should not report %s: %s", TopicCSIFile, out.String())
	}
}

func TestRun_LoginFieldsMissingAbortsBeforeScreenshots(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID).WithoutLoginFields()
	store := capturetest.NewStore()
	seq, _ := newTestSequencer(page, store, nil)

	report, err := seq.Run(context.Background())
	if err == nil {
		t.Fatal("expected error when login fields are missing")
	}
	if !errors.Is(err, capturetest.ErrNotFound) {
		t.Errorf("expected ErrNotFound in chain, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "login:") {
		t.Errorf("expected login-prefixed error, got %v", err)
	}
	if len(store.Names()) != 0 {
		t.Errorf("expected no screenshots, got %v", store.Names())
	}
	if len(report.Written) != 0 {
		t.Errorf("expected empty report, got %v", report.Written)
	}
	for _, call := range page.CallLog() {
		if strings.HasPrefix(call, "screenshot") || strings.HasPrefix(call, "click") {
			t.Errorf("unexpected call after failed fill: %s", call)
		}
	}
}

func TestRun_SearchInputMissingStillCapturesEmptyState(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID).WithoutSearchInput()
	store := capturetest.NewStore()
	seq, rec := newTestSequencer(page, store, nil)

	report, err := seq.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !slices.Contains(report.Written, SearchFile) {
		t.Errorf("expected %s written, got %v", SearchFile, report.Written)
	}
	for _, call := range page.CallLog() {
		if strings.HasPrefix(call, "fill "+SearchInputSelector) || strings.HasPrefix(call, "enter") {
			t.Errorf("unexpected search interaction: %s", call)
		}
	}
	if !slices.Contains(page.CallLog(), "screenshot /search@0") {
		t.Errorf("expected screenshot of unpopulated search page, calls: %v", page.CallLog())
	}
	if slices.Contains(rec.slept, 3*time.Second) {
		t.Error("results settle must not run without a search input")
	}
}

func TestRun_SearchSubmitsQuery(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID)
	seq, _ := newTestSequencer(page, capturetest.NewStore(), nil)

	if _, err := seq.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	calls := page.CallLog()
	i := slices.Index(calls, "query "+SearchInputSelector)
	if i < 0 || i+3 >= len(calls) {
		t.Fatalf("search query not issued, calls: %v", calls)
	}
	if !strings.HasPrefix(calls[i+1], "fill [data-capture=") {
		t.Errorf("expected fill on the acquired input, got %s", calls[i+1])
	}
	if !strings.HasPrefix(calls[i+2], "enter [data-capture=") {
		t.Errorf("expected enter on the acquired input, got %s", calls[i+2])
	}
	if calls[i+3] != "screenshot /search?q=decision+architecture@0" {
		t.Errorf("expected results screenshot, got %s", calls[i+3])
	}
}

func TestRun_SectionsMissingFallsBackToBlindScroll(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID).WithoutSections("/topics/" + testTopicID)
	store := capturetest.NewStore()
	seq, _ := newTestSequencer(page, store, nil)

	report, err := seq.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, name := range []string{TopicScorecardFile, TopicPipelineFile} {
		if !slices.Contains(report.Written, name) {
			t.Errorf("expected %s written despite missing heading, got %v", name, report.Written)
		}
	}

	calls := page.CallLog()
	if !slices.Contains(calls, "screenshot /topics/"+testTopicID+"@500") {
		t.Errorf("expected scorecard capture after blind 500px scroll, calls: %v", calls)
	}
	if !slices.Contains(calls, "screenshot /topics/"+testTopicID+"@1000") {
		t.Errorf("expected pipeline capture after second blind scroll, calls: %v", calls)
	}
	for _, call := range calls {
		if strings.HasPrefix(call, "scroll-into-view") {
			t.Errorf("unexpected scroll-into-view without a heading: %s", call)
		}
	}
}

func TestRun_ScrollsHeadingIntoViewWithOffset(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID)
	seq, _ := newTestSequencer(page, capturetest.NewStore(), nil)

	if _, err := seq.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	calls := page.CallLog()
	i := slices.Index(calls, "scroll-into-view text:Progress Scorecard")
	if i < 0 {
		t.Fatalf("expected scorecard heading scrolled into view, calls: %v", calls)
	}
	if calls[i+1] != "scroll-by 0 -80" {
		t.Errorf("expected -80 offset after scroll into view, got %s", calls[i+1])
	}
	if !slices.Contains(calls, "scroll-into-view text:AI Research Pipeline") {
		t.Errorf("expected first pipeline candidate to win, calls: %v", calls)
	}
}

func TestRun_PipelineFallsThroughCandidates(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID)
	page.Pages["/topics/"+testTopicID].Texts = []string{"Progress Scorecard", "Run Full Cycle"}
	seq, _ := newTestSequencer(page, capturetest.NewStore(), nil)

	if _, err := seq.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	calls := page.CallLog()
	if !slices.Contains(calls, "text * AI Research Pipeline") {
		t.Error("expected first candidate to be tried")
	}
	if !slices.Contains(calls, "scroll-into-view text:Run Full Cycle") {
		t.Errorf("expected second candidate to be used, calls: %v", calls)
	}
	if slices.Contains(calls, "text * Pipeline") {
		t.Error("lookup must stop at the first match")
	}
}

func TestAuthenticate_FillsAndSubmits(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID)
	seq, _ := newTestSequencer(page, capturetest.NewStore(), nil)

	if err := seq.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	want := []string{
		"navigate /login",
		"idle",
		`fill input[type="email"]`,
		`fill input[type="password"]`,
		`click button[type="submit"]`,
		"wait-url",
		"idle",
	}
	if !slices.Equal(page.CallLog(), want) {
		t.Errorf("unexpected login calls:\n got: %v\nwant: %v", page.CallLog(), want)
	}
	if page.Path() != "/" {
		t.Errorf("expected redirect to /, got %s", page.Path())
	}
}

func TestAuthenticate_RedirectTimeoutIsSwallowed(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID)
	page.BlockRedirect = true
	seq, rec := newTestSequencer(page, capturetest.NewStore(), nil)

	if err := seq.Authenticate(context.Background()); err != nil {
		t.Fatalf("expected redirect timeout to be swallowed, got %v", err)
	}
	if !slices.Equal(rec.slept, []time.Duration{time.Second}) {
		t.Errorf("expected fixed settle after swallowed timeout, got %v", rec.slept)
	}
}

func TestRun_NetworkIdleTimeoutIsSwallowed(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID)
	page.BlockIdle = true
	store := capturetest.NewStore()
	seq, _ := newTestSequencer(page, store, nil)

	report, err := seq.Run(context.Background())
	if err != nil {
		t.Fatalf("expected idle timeouts to be swallowed, got %v", err)
	}
	if len(report.Written) != 7 {
		t.Errorf("expected 7 files, got %v", report.Written)
	}
}

func TestRun_ScreenshotErrorAbortsRemainingSteps(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID)
	page.Fail["screenshot /@0"] = errors.New("target crashed")
	store := capturetest.NewStore()
	seq, _ := newTestSequencer(page, store, nil)

	report, err := seq.Run(context.Background())
	if err == nil {
		t.Fatal("expected screenshot failure to abort the run")
	}
	if !strings.Contains(err.Error(), `capture step "dashboard"`) {
		t.Errorf("expected step name in error, got %v", err)
	}
	want := allFiles()[:4]
	if !slices.Equal(report.Written, want) {
		t.Errorf("expected %v before the failure, got %v", want, report.Written)
	}
	if slices.Contains(page.CallLog(), "navigate /search") {
		t.Error("no step may run after a failure")
	}
}

func TestRun_StoreErrorAborts(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID)
	store := capturetest.NewStore()
	store.Fail[TopicsOverviewFile] = errors.New("disk full")
	seq, _ := newTestSequencer(page, store, nil)

	_, err := seq.Run(context.Background())
	if err == nil {
		t.Fatal("expected write failure to abort the run")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected underlying cause in error, got %v", err)
	}
	if slices.Contains(page.CallLog(), "navigate /topics/"+testTopicID) {
		t.Error("no step may run after a failed write")
	}
}

func TestRun_LookupErrorAborts(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID)
	page.Fail["text * Progress Scorecard"] = errors.New("execution context destroyed")
	seq, _ := newTestSequencer(page, capturetest.NewStore(), nil)

	_, err := seq.Run(context.Background())
	if err == nil {
		t.Fatal("expected lookup error to abort the run")
	}
	if !strings.Contains(err.Error(), `capture step "scorecard"`) {
		t.Errorf("expected scorecard step in error, got %v", err)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID)
	store := capturetest.NewStore()
	seq, _ := newTestSequencer(page, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := seq.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(store.Names()) != 0 {
		t.Errorf("expected no files after cancellation, got %v", store.Names())
	}
}

func TestNew_TrimsBaseURL(t *testing.T) {
	page := capturetest.NewCortex(testBase, testTopicID)
	seq := New(page, capturetest.NewStore(), nil, nil, Options{
		BaseURL: testBase + "/",
		Login:   DefaultLogin("a@b.c", "x"),
	}).WithSleep(func(ctx context.Context, d time.Duration) error { return nil })

	if err := seq.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if calls := page.CallLog(); calls[0] != "navigate /login" {
		t.Errorf("expected navigate /login, got %s", calls[0])
	}
}
