package model

// TagPosition controls how a custom activation tag is combined with a caption.
type TagPosition string

const (
	TagPrepend TagPosition = "prepend"
	TagAppend  TagPosition = "append"
	TagReplace TagPosition = "replace"
)

// Valid reports whether p is one of the known placements.
func (p TagPosition) Valid() bool {
	switch p {
	case TagPrepend, TagAppend, TagReplace:
		return true
	}
	return false
}

// ComposeCaption applies tag to caption according to pos. An empty tag or an unknown
// position leaves the caption unchanged.
//
// Composition is not idempotent for prepend and append: composing an already composed
// caption adds the tag a second time.
func ComposeCaption(caption, tag string, pos TagPosition) string {
	if tag == "" {
		return caption
	}
	switch pos {
	case TagPrepend:
		if caption == "" {
			return tag
		}
		return tag + ", " + caption
	case TagAppend:
		if caption == "" {
			return tag
		}
		return caption + ", " + tag
	case TagReplace:
		return tag
	default:
		return caption
	}
}
