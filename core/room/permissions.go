package room

// Permission is one member capability inside a room. The set is closed:
// permission checks match on these values exhaustively instead of
// dispatching through caller-supplied predicates.
type Permission uint8

const (
	PermSendMessage Permission = iota
	PermViewHistory
	PermAddReactions
	PermModerate
	PermInviteMembers
)

// PermissionSet is a bitmask over Permission values.
type PermissionSet uint32

// NewPermissionSet builds a set from individual permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s |= 1 << p
	}
	return s
}

// Has reports whether the set contains p.
func (s PermissionSet) Has(p Permission) bool {
	return s&(1<<p) != 0
}

// With returns a copy of the set with p added.
func (s PermissionSet) With(p Permission) PermissionSet {
	return s | (1 << p)
}

// Without returns a copy of the set with p removed.
func (s PermissionSet) Without(p Permission) PermissionSet {
	return s &^ (1 << p)
}

// DefaultMemberPermissions is what an ordinary member gets on join.
func DefaultMemberPermissions() PermissionSet {
	return NewPermissionSet(PermSendMessage, PermViewHistory, PermAddReactions)
}

// ModeratorPermissions extends the default set with moderation rights.
func ModeratorPermissions() PermissionSet {
	return DefaultMemberPermissions().With(PermModerate).With(PermInviteMembers)
}
