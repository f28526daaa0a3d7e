package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two consecutive guards returning the same value are mergeable with ||.
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	// Stray debug prints; use the injected zap logger instead.
	m.Match(`fmt.Println($*_)`, `fmt.Printf($*_)`).
		Report(`stdout print in server code; use the injected logger`)
}

func redaction(m dsl.Matcher) {
	// Model arguments must only ever be logged through the redacting path.
	m.Match(`$log.Debug($msg, zap.Any($key, $args.ExtraBody))`).
		Report(`logging raw extra-body payload; log the redacted copy instead`)
}
