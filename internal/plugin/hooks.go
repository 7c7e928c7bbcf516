package plugin

import (
	"context"

	"github.com/ajranjith/uiaudit/internal/model"
)

type HookName string

const (
	// BeforeScan receives Root and Files; a handler may replace Files.
	BeforeScan HookName = "beforeScan"
	// AfterScan receives Result. Returned values are ignored.
	AfterScan HookName = "afterScan"
	// BeforeFileProcess receives Path and Content; a handler may replace Content.
	BeforeFileProcess HookName = "beforeFileProcess"
	// AfterFileProcess receives Path and Issues; a handler may replace Issues.
	AfterFileProcess HookName = "afterFileProcess"
	// AfterGrading receives Report. Returned values are ignored.
	AfterGrading HookName = "afterGrading"
)

var knownHooks = map[HookName]bool{
	BeforeScan:        true,
	AfterScan:         true,
	BeforeFileProcess: true,
	AfterFileProcess:  true,
	AfterGrading:      true,
}

// HookArgs carries the payload of every hook; each hook uses only its own fields.
type HookArgs struct {
	Root    string
	Files   []string
	Path    string
	Content string
	Issues  []model.Issue
	Result  *model.ScanResult
	Report  *model.GradeReport
}

// HookFunc handles one hook invocation. Returning nil passes the arguments through
// unchanged; returning a value hands it to the next handler.
type HookFunc func(ctx context.Context, args HookArgs) (*HookArgs, error)

// merge applies the replaceable field of hook from next onto cur.
func merge(hook HookName, cur HookArgs, next *HookArgs) HookArgs {
	if next == nil {
		return cur
	}
	switch hook {
	case BeforeScan:
		if next.Files != nil {
			cur.Files = next.Files
		}
	case BeforeFileProcess:
		cur.Content = next.Content
	case AfterFileProcess:
		if next.Issues != nil {
			cur.Issues = next.Issues
		}
	}
	return cur
}
