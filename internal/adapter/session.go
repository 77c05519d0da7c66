package adapter

import "github.com/mmcdole/crate/internal/domain"

// StaticSession is a session whose user comes from configuration.
type StaticSession string

var _ domain.Session = StaticSession("")

// UserID returns the configured user.
func (s StaticSession) UserID() string { return string(s) }
