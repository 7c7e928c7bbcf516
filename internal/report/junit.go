package report

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/ajranjith/uiaudit/internal/model"
)

type junitTestsuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Testsuites []junitTestsuite `xml:"testsuite"`
}

type junitTestsuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []junitTestcase `xml:"testcase"`
}

type junitTestcase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnit renders one test case per scanned file, failing when the file has error issues,
// plus a final case for the score threshold.
func JUnit(a Audit) ([]byte, error) {
	var cases []junitTestcase
	failures := 0
	files := a.Scan.IssuesByFile()
	var extra []string
	for name := range files {
		if _, scanned := a.Scan.Files[name]; !scanned {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	names := append(append([]string(nil), a.Scan.Order...), extra...)
	for _, name := range names {
		tc := junitTestcase{Name: name, Classname: "uiaudit.files", Time: "0"}
		var lines []string
		errs := 0
		for _, is := range sortedIssues(files[name]) {
			lines = append(lines, fmt.Sprintf("%d:%d %s %s (%s)", is.Line, is.Column, is.Severity, is.Message, is.RuleID))
			if is.Severity == model.SeverityError {
				errs++
			}
		}
		if errs > 0 {
			tc.Failure = &junitFailure{
				Message: fmt.Sprintf("%d error issues", errs),
				Type:    "error",
				Body:    strings.Join(lines, "\n"),
			}
			failures++
		}
		cases = append(cases, tc)
	}

	gate := junitTestcase{Name: "score-threshold", Classname: "uiaudit.grade", Time: "0"}
	if !a.Pass {
		gate.Failure = &junitFailure{
			Message: fmt.Sprintf("score %d is below threshold %d", a.Grade.Overall, a.Threshold),
			Type:    "threshold",
			Body:    fmt.Sprintf("grade %s", a.Grade.Grade),
		}
		failures++
	}
	cases = append(cases, gate)

	doc := junitTestsuites{
		Testsuites: []junitTestsuite{{
			Name:     "uiaudit",
			Tests:    len(cases),
			Failures: failures,
			Time:     "0",
			Cases:    cases,
		}},
	}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}
