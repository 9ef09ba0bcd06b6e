package policy

import (
	"context"
	"strconv"

	"github.com/liqk/gate/common/auth"
	"github.com/liqk/gate/common/logger"
	"github.com/liqk/gate/common/sparql"
)

// Graph IRIs. PolicyGraph doubles as the action identifier for generic
// pass-through authorization.
const (
	PolicyGraph     = "http://liqk.org/graph"
	FilesystemGraph = "http://liqk.org/graph/filesystem"
)

// Access ranks owned by the gateway. Higher subsumes lower.
const (
	RankNone = 0
	RankView = 1
	RankEdit = 3
)

// Target identifies what a rank is resolved against. Resource targets
// honor reflexive-transitive containment; action targets match policies
// directly.
type Target struct {
	IRI     string
	closure bool
}

// ResourceTarget builds a target whose applicable policies include any
// policy on a containing directory (reflexive-transitive closure over
// posix:includes).
func ResourceTarget(iri string) Target {
	return Target{IRI: iri, closure: true}
}

// ActionTarget builds a target matched only by policies that name it
// directly, with no closure traversal.
func ActionTarget(iri string) Target {
	return Target{IRI: iri}
}

// Resolver computes effective access ranks from the policy graph.
type Resolver struct {
	store      *sparql.Client
	logger     *logger.Logger
	adminToken string
}

// NewResolver creates a policy resolver. adminToken may be empty; when set
// it is a locally-held credential that short-circuits to edit rank.
func NewResolver(store *sparql.Client, log *logger.Logger, adminToken string) *Resolver {
	return &Resolver{
		store:      store,
		logger:     log,
		adminToken: adminToken,
	}
}

// Rank returns the maximum rank granted for target by public policies plus,
// when a credential is presented, policies bound to that credential's
// digest. It never fails open: any upstream error resolves to RankNone.
func (r *Resolver) Rank(ctx context.Context, target Target, credential string) int {
	if r.adminOverride(credential) {
		return RankEdit
	}

	rank := r.queryRank(ctx, target, "")

	if credential != "" {
		if granted := r.queryRank(ctx, target, auth.Digest(credential)); granted > rank {
			rank = granted
		}
	}

	return rank
}

// CredentialRegistered reports whether a Credential entity with the
// presented credential's digest exists, independent of any policy. Pure
// login-gate check; upstream failure counts as unregistered.
func (r *Resolver) CredentialRegistered(ctx context.Context, credential string) bool {
	if r.adminOverride(credential) {
		return true
	}

	q := sparql.NewSelect("?tok").
		From(PolicyGraph).
		Pattern("?tok a liqk:Token .").
		Pattern("?tok liqk:tokenHash %s .", sparql.Literal(auth.Digest(credential))).
		Limit(1).
		String()

	rows, err := r.store.Select(ctx, q)
	if err != nil {
		r.logger.Warn("credential registration check failed", "error", err)
		return false
	}
	return len(rows) > 0
}

func (r *Resolver) adminOverride(credential string) bool {
	return r.adminToken != "" && credential != "" && auth.SecureCompare(credential, r.adminToken)
}

// queryRank runs one rank sub-query. digest == "" selects public policies;
// otherwise policies granted to the matching Credential digest.
func (r *Resolver) queryRank(ctx context.Context, target Target, digest string) int {
	q := sparql.NewSelect("(MAX(?rank) AS ?maxRank)").
		From(PolicyGraph).
		From(FilesystemGraph).
		Pattern("?policy a liqk:AccessPolicy .").
		Pattern("?policy liqk:rank ?rank .")

	if target.closure {
		// Policies apply to the target and every transitive descendant.
		q.Pattern("?policy liqk:appliesTo ?t .").
			Pattern("?t posix:includes* %s .", sparql.IRIRef(target.IRI))
	} else {
		q.Pattern("?policy liqk:appliesTo %s .", sparql.IRIRef(target.IRI))
	}

	if digest == "" {
		q.Pattern("?policy liqk:public true .")
	} else {
		q.Pattern("?policy liqk:grantee ?tok .").
			Pattern("?tok liqk:tokenHash %s .", sparql.Literal(digest))
	}

	rows, err := r.store.Select(ctx, q.String())
	if err != nil {
		r.logger.Warn("rank query failed, denying", "target", target.IRI, "error", err)
		return RankNone
	}

	if len(rows) == 0 {
		return RankNone
	}

	// MAX over an empty group leaves the variable unbound.
	raw, ok := rows[0]["maxRank"]
	if !ok {
		return RankNone
	}

	rank, err := strconv.Atoi(raw)
	if err != nil || rank < 0 {
		r.logger.Warn("malformed rank in policy graph", "target", target.IRI, "value", raw)
		return RankNone
	}

	return rank
}
