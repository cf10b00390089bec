// Package sentiment scores normalized post text in [-1, 1] and averages the
// scores per interval.
//
// VaderScorer is the default and wraps the VADER port in govader. LexiconScorer
// scores against a caller-supplied lexicon with the same rules: every known
// word carries a valence, nearby booster words strengthen it, a preceding
// negation flips and damps it, and the clause after "but" outweighs the clause
// before it. The summed valence is squashed into [-1, 1] with
// x / sqrt(x*x + 15). Both drop English stopwords before scoring.
package sentiment
