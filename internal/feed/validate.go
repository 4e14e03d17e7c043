package feed

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"

	"omahashows/internal/model"
	"omahashows/internal/venue"
)

var validate = validator.New()

// maxWarningsShown bounds the warnings Report.Write prints.
const maxWarningsShown = 10

// Issue is one validation finding.
type Issue struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// Report collects the findings of a feed validation pass.
type Report struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Events   int     `json:"events"`
	Shows    int     `json:"shows"`
}

func (r Report) OK() bool { return len(r.Errors) == 0 }

// Validate checks the feeds for problems that would break listings: missing
// or malformed required fields, duplicate ids, image paths that do not exist
// and history venues that no venue id claims. reg may be nil.
func Validate(events model.EventsFeed, history model.HistoryFeed, reg *venue.Registry) Report {
	r := Report{Events: len(events.Events), Shows: len(history.Shows)}

	seen := make(map[string]int, len(events.Events))
	for i, e := range events.Events {
		subject := e.Title
		if subject == "" {
			subject = "(unknown)"
		}

		if err := validate.Struct(e); err != nil {
			for _, msg := range fieldErrors(err) {
				r.Errors = append(r.Errors, Issue{Subject: subject, Message: msg})
			}
		}

		if e.ID != "" {
			if first, dup := seen[e.ID]; dup {
				r.Errors = append(r.Errors, Issue{
					Subject: subject,
					Message: fmt.Sprintf("duplicate id %q (first at index %d)", e.ID, first),
				})
			} else {
				seen[e.ID] = i
			}
		}

		img := e.ImageURL
		switch {
		case img == "":
		case strings.HasPrefix(img, "http") && strings.HasSuffix(img, ".webp"):
			r.Warnings = append(r.Warnings, Issue{
				Subject: subject,
				Message: "external image URL ends with .webp; verify it exists upstream",
				URL:     img,
			})
		case strings.HasPrefix(img, "/images/astro/") && strings.HasSuffix(img, ".png"):
			r.Errors = append(r.Errors, Issue{
				Subject: subject,
				Message: "local astro image references .png but the files are .webp",
				URL:     img,
			})
		}
	}

	for _, src := range events.Sources {
		if err := validate.Struct(src); err != nil {
			for _, msg := range fieldErrors(err) {
				r.Errors = append(r.Errors, Issue{Subject: "source " + src.ID, Message: msg})
			}
		}
	}

	unmapped := map[string]int{}
	var order []string
	for _, h := range history.Shows {
		subject := h.Title
		if subject == "" {
			subject = "(unknown)"
		}
		if err := validate.Struct(h); err != nil {
			for _, msg := range fieldErrors(err) {
				r.Errors = append(r.Errors, Issue{Subject: "history " + subject, Message: msg})
			}
		}
		if reg == nil || strings.TrimSpace(h.Venue) == "" {
			continue
		}
		if _, err := reg.Resolve(h.Venue); err != nil {
			if _, ok := unmapped[h.Venue]; !ok {
				order = append(order, h.Venue)
			}
			unmapped[h.Venue]++
		}
	}
	for _, name := range order {
		r.Warnings = append(r.Warnings, Issue{
			Subject: name,
			Message: fmt.Sprintf("history venue has no venue id (%d shows)", unmapped[name]),
		})
	}
	return r
}

func fieldErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out = append(out, "missing "+strings.ToLower(fe.Field()))
		case "datetime":
			out = append(out, fmt.Sprintf("%s %q is not in %s form", strings.ToLower(fe.Field()), fe.Value(), fe.Param()))
		default:
			out = append(out, fmt.Sprintf("%s fails %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return out
}

// Write prints the report in a human-readable form. At most ten warnings
// are listed; every error is.
func (r Report) Write(w io.Writer) {
	if n := len(r.Warnings); n > 0 {
		fmt.Fprintf(w, "%d warning(s):\n\n", n)
		for _, issue := range r.Warnings[:min(n, maxWarningsShown)] {
			writeIssue(w, issue)
		}
		if n > maxWarningsShown {
			fmt.Fprintf(w, "  ... and %d more warnings\n\n", n-maxWarningsShown)
		}
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "%d error(s):\n\n", len(r.Errors))
		for _, issue := range r.Errors {
			writeIssue(w, issue)
		}
		return
	}

	fmt.Fprintf(w, "Validated %d events and %d history shows\n", r.Events, r.Shows)
	if len(r.Warnings) == 0 {
		fmt.Fprintln(w, "No issues found")
	}
}

func writeIssue(w io.Writer, issue Issue) {
	fmt.Fprintf(w, "  %s: %s\n", issue.Subject, issue.Message)
	if issue.URL != "" {
		fmt.Fprintf(w, "    URL: %s\n", issue.URL)
	}
	fmt.Fprintln(w)
}
