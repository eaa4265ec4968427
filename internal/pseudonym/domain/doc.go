// Package domain defines the pseudonymization domain: groups owned by a principal,
// members identified inside a group only by pseudonym, and the two states a
// member's real identity can be in.
package domain
