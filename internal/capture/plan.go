package capture

import (
	"time"
)

// Output file names of the documentation images.
const (
	TopicsOverviewFile = "topics-overview.png"
	TopicDetailFile    = "topic-detail.png"
	TopicScorecardFile = "topic-scorecard.png"
	TopicPipelineFile  = "topic-pipeline.png"
	DashboardFile      = "dashboard.png"
	SearchFile         = "search.png"
	TopicCSIFile       = "topic-csi.png"
)

// SearchInputSelector matches the search box by type or placeholder. The
// group is resolved in document order.
const SearchInputSelector = `input[type="text"], input[type="search"], input[placeholder*="earch"]`

const (
	sectionPause    = 500 * time.Millisecond
	headingOffset   = -80
	blindScroll     = 500
	searchSettle    = 3 * time.Second
	followLinkPause = 2 * time.Second
)

// PlanParams are the data-dependent parts of the plan.
type PlanParams struct {
	TopicID     string
	SearchQuery string
	CSILinkText string
}

// DefaultPlan returns the documentation capture sequence. Steps 3 and 4 stay
// on the topic detail page and scroll further down it.
func DefaultPlan(p PlanParams) []Step {
	return []Step{
		{
			Name:   "topics page",
			Path:   "/topics",
			Settle: 1500 * time.Millisecond,
			Output: TopicsOverviewFile,
		},
		{
			Name:   "topic detail",
			Path:   "/topics/" + p.TopicID,
			Settle: 2 * time.Second,
			Output: TopicDetailFile,
		},
		{
			Name: "scorecard",
			Interact: ScrollTo{
				Candidates: []string{"Progress Scorecard"},
				Offset:     headingOffset,
				Fallback:   blindScroll,
				Pause:      sectionPause,
			},
			Output: TopicScorecardFile,
		},
		{
			Name: "pipeline",
			Interact: ScrollTo{
				Candidates: []string{"AI Research Pipeline", "Run Full Cycle", "Pipeline"},
				Offset:     headingOffset,
				Fallback:   blindScroll,
				Pause:      sectionPause,
			},
			Output: TopicPipelineFile,
		},
		{
			Name:   "dashboard",
			Path:   "/",
			Settle: 1500 * time.Millisecond,
			Output: DashboardFile,
		},
		{
			Name:   "search",
			Path:   "/search",
			Settle: 500 * time.Millisecond,
			Interact: Search{
				Selector: SearchInputSelector,
				Query:    p.SearchQuery,
				Settle:   searchSettle,
			},
			Output: SearchFile,
		},
		{
			Name:   "CSI topic",
			Path:   "/topics",
			Settle: time.Second,
			Interact: FollowLink{
				Text:   p.CSILinkText,
				Settle: followLinkPause,
			},
			Output: TopicCSIFile,
		},
	}
}

// Login describes the credential form and the waits around submitting it.
type Login struct {
	Path             string
	EmailSelector    string
	PasswordSelector string
	SubmitSelector   string
	Email            string
	Password         string
	RedirectTimeout  time.Duration
	Settle           time.Duration
}

// DefaultLogin returns the Cortex login form description for the given
// credentials.
func DefaultLogin(email, password string) Login {
	return Login{
		Path:             "/login",
		EmailSelector:    `input[type="email"]`,
		PasswordSelector: `input[type="password"]`,
		SubmitSelector:   `button[type="submit"]`,
		Email:            email,
		Password:         password,
		RedirectTimeout:  10 * time.Second,
		Settle:           time.Second,
	}
}
