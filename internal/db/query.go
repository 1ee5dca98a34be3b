package db

import (
	"fmt"
	"strings"
)

// ScopeFilter renders the campaign/kind scope into FT tag pre-filters.
func ScopeFilter(sc Scope) string {
	filter := fmt.Sprintf("@campaign_id:{%s}", tagEscaper.Replace(sc.CampaignID))
	if sc.Kind != "" {
		filter += fmt.Sprintf(" @kind:{%s}", tagEscaper.Replace(sc.Kind))
	}
	return filter
}

// TextClause targets the weighted text fields with the escaped keywords.
func TextClause(query string) string {
	return fmt.Sprintf("@title|detail:(%s)", EscapeText(query))
}

// EscapeText escapes FT query syntax characters in user keyword input.
func EscapeText(s string) string {
	return queryEscaper.Replace(s)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)
