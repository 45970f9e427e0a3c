// Package jobboard recognizes job-posting URLs on the boards and ATS hosts
// job alerts link to, and maps them to canonical URLs and stable job keys.
package jobboard

import (
	"net/url"
	"regexp"
	"strings"
)

// posting is what a board parser extracts from one URL.
type posting struct {
	id        string
	canonical string
	strict    bool // the input URL already has the board's detail-page shape
}

type board struct {
	name   string
	domain string   // reported source domain
	hosts  []string // host suffixes served by this board
	parse  func(u *url.URL) (posting, bool)
}

var (
	linkedinStrict = regexp.MustCompile(`^/jobs/view/(\d+)/?$`)
	linkedinLoose  = regexp.MustCompile(`^/(?:comm/)?jobs/view/(?:[^/]*-)?(\d{5,})(?:/|$)`)
	numericID      = regexp.MustCompile(`^\d+$`)

	greenhousePath = regexp.MustCompile(`^/([^/]+)/jobs/(\d+)/?$`)

	leverPath = regexp.MustCompile(`^/([^/]+)/([0-9a-fA-F-]{36})(/apply)?/?$`)
	ashbyPath = regexp.MustCompile(`^/([^/]+)/([0-9a-fA-F-]{36})(/application)?/?$`)

	workdayStrict = regexp.MustCompile(`/job/[^/]+/[^/]*_([A-Za-z0-9-]+)/?$`)
	workdayLoose  = regexp.MustCompile(`^(.*/job/(?:[^/]+/)*[^/]*_([A-Za-z0-9-]+))(?:/|$)`)

	indeedJK = regexp.MustCompile(`^[0-9a-fA-F]{8,}$`)

	wellfoundStrict = regexp.MustCompile(`^/jobs/(\d+)(?:-[^/]*)?/?$`)
	wellfoundLoose  = regexp.MustCompile(`^/company/[^/]+/jobs/(\d+)(?:-[^/]*)?/?$`)

	smartRecruitersPath = regexp.MustCompile(`^/([^/]+)/(\d+)(?:-[^/]*)?/?$`)

	workablePath = regexp.MustCompile(`^/([^/]+)/j/([A-Za-z0-9]+)(/apply)?/?$`)
)

var boards = []board{
	{
		name:   "linkedin",
		domain: "linkedin.com",
		hosts:  []string{"linkedin.com"},
		parse: func(u *url.URL) (posting, bool) {
			if m := linkedinStrict.FindStringSubmatch(u.Path); m != nil {
				return posting{id: m[1], canonical: "https://www.linkedin.com/jobs/view/" + m[1], strict: true}, true
			}
			if m := linkedinLoose.FindStringSubmatch(u.Path); m != nil {
				return posting{id: m[1], canonical: "https://www.linkedin.com/jobs/view/" + m[1]}, true
			}
			if strings.HasPrefix(u.Path, "/jobs") {
				if id := u.Query().Get("currentJobId"); numericID.MatchString(id) {
					return posting{id: id, canonical: "https://www.linkedin.com/jobs/view/" + id}, true
				}
			}
			return posting{}, false
		},
	},
	{
		name:   "greenhouse",
		domain: "greenhouse.io",
		hosts:  []string{"greenhouse.io"},
		parse: func(u *url.URL) (posting, bool) {
			if m := greenhousePath.FindStringSubmatch(u.Path); m != nil {
				return posting{id: m[2], canonical: "https://" + u.Host + "/" + m[1] + "/jobs/" + m[2], strict: true}, true
			}
			if strings.HasPrefix(u.Path, "/embed/job_app") {
				q := u.Query()
				company, id := q.Get("for"), q.Get("token")
				if company != "" && numericID.MatchString(id) {
					return posting{id: id, canonical: "https://boards.greenhouse.io/" + company + "/jobs/" + id}, true
				}
			}
			return posting{}, false
		},
	},
	{
		name:   "lever",
		domain: "lever.co",
		hosts:  []string{"jobs.lever.co", "jobs.eu.lever.co"},
		parse: func(u *url.URL) (posting, bool) {
			m := leverPath.FindStringSubmatch(u.Path)
			if m == nil {
				return posting{}, false
			}
			id := strings.ToLower(m[2])
			return posting{id: id, canonical: "https://" + u.Host + "/" + m[1] + "/" + id, strict: m[3] == ""}, true
		},
	},
	{
		name:   "ashby",
		domain: "ashbyhq.com",
		hosts:  []string{"jobs.ashbyhq.com"},
		parse: func(u *url.URL) (posting, bool) {
			m := ashbyPath.FindStringSubmatch(u.Path)
			if m == nil {
				return posting{}, false
			}
			id := strings.ToLower(m[2])
			return posting{id: id, canonical: "https://jobs.ashbyhq.com/" + m[1] + "/" + id, strict: m[3] == ""}, true
		},
	},
	{
		name:   "workday",
		domain: "myworkdayjobs.com",
		hosts:  []string{"myworkdayjobs.com"},
		parse: func(u *url.URL) (posting, bool) {
			if m := workdayStrict.FindStringSubmatch(u.Path); m != nil {
				path := strings.TrimSuffix(u.Path, "/")
				return posting{id: m[1], canonical: "https://" + u.Host + path, strict: true}, true
			}
			if m := workdayLoose.FindStringSubmatch(u.Path); m != nil {
				return posting{id: m[2], canonical: "https://" + u.Host + m[1]}, true
			}
			return posting{}, false
		},
	},
	{
		name:   "indeed",
		domain: "indeed.com",
		hosts:  []string{"indeed.com"},
		parse: func(u *url.URL) (posting, bool) {
			jk := u.Query().Get("jk")
			if !indeedJK.MatchString(jk) {
				return posting{}, false
			}
			jk = strings.ToLower(jk)
			switch u.Path {
			case "/viewjob":
				return posting{id: jk, canonical: "https://www.indeed.com/viewjob?jk=" + jk, strict: true}, true
			case "/rc/clk", "/pagead/clk", "/m/viewjob", "/m/basecamp/viewjob":
				return posting{id: jk, canonical: "https://www.indeed.com/viewjob?jk=" + jk}, true
			}
			return posting{}, false
		},
	},
	{
		name:   "wellfound",
		domain: "wellfound.com",
		hosts:  []string{"wellfound.com", "angel.co"},
		parse: func(u *url.URL) (posting, bool) {
			if m := wellfoundStrict.FindStringSubmatch(u.Path); m != nil {
				return posting{id: m[1], canonical: "https://wellfound.com/jobs/" + m[1], strict: true}, true
			}
			if m := wellfoundLoose.FindStringSubmatch(u.Path); m != nil {
				return posting{id: m[1], canonical: "https://wellfound.com/jobs/" + m[1]}, true
			}
			return posting{}, false
		},
	},
	{
		name:   "smartrecruiters",
		domain: "smartrecruiters.com",
		hosts:  []string{"jobs.smartrecruiters.com"},
		parse: func(u *url.URL) (posting, bool) {
			m := smartRecruitersPath.FindStringSubmatch(u.Path)
			if m == nil {
				return posting{}, false
			}
			return posting{id: m[2], canonical: "https://jobs.smartrecruiters.com/" + m[1] + "/" + m[2], strict: true}, true
		},
	},
	{
		name:   "workable",
		domain: "workable.com",
		hosts:  []string{"apply.workable.com"},
		parse: func(u *url.URL) (posting, bool) {
			m := workablePath.FindStringSubmatch(u.Path)
			if m == nil {
				return posting{}, false
			}
			code := strings.ToUpper(m[2])
			return posting{id: code, canonical: "https://apply.workable.com/" + m[1] + "/j/" + code + "/", strict: m[3] == ""}, true
		},
	},
}

func findBoard(host string) *board {
	for i := range boards {
		for _, h := range boards[i].hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return &boards[i]
			}
		}
	}
	return nil
}
