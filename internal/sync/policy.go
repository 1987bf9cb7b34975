package sync

// Rule is one step of the startup policy. Rules are tried in order and the
// first that matches wins.
type Rule int

const (
	// RuleAdoptRemote: the remote answered with a real board. Adopt it and
	// overwrite the local cache.
	RuleAdoptRemote Rule = iota + 1

	// RulePushLocal: the remote answered but holds nothing real, while the
	// local board is real. Adopt local and push it to the remote once.
	RulePushLocal

	// RuleLocalCache: the local cache holds a current board that is not the
	// untouched sample.
	RuleLocalCache

	// RuleMigrate: upgrade a legacy board, V2 first, then V1.
	RuleMigrate

	// RuleSample: start from the compiled-in sample.
	RuleSample
)

func (r Rule) String() string {
	switch r {
	case RuleAdoptRemote:
		return "adopt-remote"
	case RulePushLocal:
		return "push-local"
	case RuleLocalCache:
		return "local-cache"
	case RuleMigrate:
		return "migrate"
	case RuleSample:
		return "sample"
	default:
		return "unknown"
	}
}

// Facts are the inputs of the startup policy.
type Facts struct {
	// RemoteReachable is true only when the selected remote returned a
	// parseable board. Transport and parse failures both leave it false, so
	// a remote that is merely down is never overwritten.
	RemoteReachable bool

	// RemoteReal is the realness of the remote board.
	RemoteReal bool

	// LocalReal is the realness of the cached current board.
	LocalReal bool

	// LocalCurrent is true when the cache holds a parseable current board
	// that is not the untouched sample.
	LocalCurrent bool
}

// Decide applies the startup policy to facts. RuleMigrate means "try to
// migrate"; the caller falls back when no legacy board is usable.
func Decide(f Facts) Rule {
	switch {
	case f.RemoteReachable && f.RemoteReal:
		return RuleAdoptRemote
	case f.RemoteReachable && f.LocalReal:
		return RulePushLocal
	case f.LocalCurrent:
		return RuleLocalCache
	default:
		return RuleMigrate
	}
}
