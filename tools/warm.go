package tools

import (
	"github.com/jonwraymond/focusops/cache"
	"github.com/jonwraymond/focusops/gateway"
	"github.com/jonwraymond/focusops/script"
)

// WarmQuery is a query the warmer runs at startup.
type WarmQuery struct {
	Name  string
	Query gateway.Query
}

// WarmQueries returns one query per cache category, built exactly as
// the matching tool builds its no-argument call so warmed entries are
// hit by the first request.
func WarmQueries() []WarmQuery {
	return []WarmQuery{
		{Name: string(cache.Tasks), Query: taskListQuery("all", script.Null(), script.Null(), defaultTaskLimit)},
		{Name: string(cache.Projects), Query: projectListQuery(script.Null(), script.Null(), defaultProjectLimit)},
		{Name: string(cache.Tags), Query: tagListQuery(true)},
		{Name: string(cache.Folders), Query: folderListQuery()},
		{Name: string(cache.Analytics), Query: summaryQuery(defaultSummaryDays)},
		{Name: string(cache.Reviews), Query: reviewQueueQuery(script.Null())},
	}
}
