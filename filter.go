package ostiary

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// BuildFilteredQuery conjoins a user's data scope onto an arbitrary base
// query. The base query and its parameters pass through untouched for an
// unrestricted scope; otherwise the scope condition is renumbered past the
// base parameters, parenthesized, and appended with AND or WHERE.
//
// Injection-safe by construction: only placeholder indices computed here
// are spliced into the SQL text. Every value — team IDs, user ID, caller
// parameters — travels through the parameter list.
func (e *Engine) BuildFilteredQuery(ctx context.Context, baseQuery string, baseParams []any, userID string, f *DataFilter) (string, []any, error) {
	dc, err := e.BuildDataContext(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	scope := e.ScopeFor(dc, f)
	if scope.Type == ScopeAll {
		return baseQuery, baseParams, nil
	}

	condition := shiftPlaceholders(scope.Condition, len(baseParams))

	var sb strings.Builder
	sb.WriteString(baseQuery)
	if containsWhere(baseQuery) {
		sb.WriteString(" AND (")
	} else {
		sb.WriteString(" WHERE (")
	}
	sb.WriteString(condition)
	sb.WriteString(")")

	params := make([]any, 0, len(baseParams)+len(scope.Params))
	params = append(params, baseParams...)
	params = append(params, scope.Params...)

	return sb.String(), params, nil
}

// shiftPlaceholders adds offset to every $N token in one pass. A single
// regexp walk renumbers each distinct token exactly once, so $1 can never
// be re-shifted or matched inside a longer token like $12.
func shiftPlaceholders(condition string, offset int) string {
	if offset == 0 {
		return condition
	}
	return placeholderPattern.ReplaceAllStringFunc(condition, func(tok string) string {
		n, err := strconv.Atoi(tok[1:])
		if err != nil {
			return tok
		}
		return "$" + strconv.Itoa(n+offset)
	})
}

func containsWhere(query string) bool {
	return strings.Contains(strings.ToUpper(query), "WHERE")
}
