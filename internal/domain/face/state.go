package face

// State is the UI observable state of one capture and comparison workflow.
// The zero value is the initial state.
type State struct {
	// Selfie is the last image returned by a successful liveness capture.
	Selfie *Image
	// Gallery is the last image picked from the gallery.
	Gallery *Image
	// SimilarityScore is the last comparison score in percent.
	SimilarityScore *float64
	// IsLoading is set while a comparison is in flight.
	IsLoading bool
	// CanCompare is true iff both images are present.
	CanCompare bool
}

// WithSelfie returns a copy holding img in the selfie slot.
func (s State) WithSelfie(img *Image) State {
	s.Selfie = img

	return s.recompute()
}

// WithGallery returns a copy holding img in the gallery slot.
func (s State) WithGallery(img *Image) State {
	s.Gallery = img

	return s.recompute()
}

// WithScore returns a copy holding score.
func (s State) WithScore(score float64) State {
	s.SimilarityScore = &score

	return s
}

// Clone returns a copy that shares no mutable references with s.
// Images are immutable and therefore shared.
func (s State) Clone() State {
	if s.SimilarityScore != nil {
		score := *s.SimilarityScore
		s.SimilarityScore = &score
	}

	return s
}

func (s State) recompute() State {
	s.CanCompare = s.Selfie != nil && s.Gallery != nil

	return s
}
