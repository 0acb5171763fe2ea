package domain

// Viewer is whoever is looking at a wishlist. The zero value is an anonymous
// visitor.
type Viewer struct {
	UserID string
	Email  string
}

// Anonymous reports whether no user is signed in.
func (v Viewer) Anonymous() bool { return v.UserID == "" }

// Owns reports whether v created w.
func (v Viewer) Owns(w *Wishlist) bool {
	return !v.Anonymous() && w != nil && w.UserID == v.UserID
}

// CanView reports whether v may see w. sharedWithViewer is whether a share
// row exists for v's email on w.
func CanView(v Viewer, w *Wishlist, sharedWithViewer bool) bool {
	if w == nil {
		return false
	}
	if v.Owns(w) || w.IsPublic {
		return true
	}
	return !v.Anonymous() && sharedWithViewer
}
