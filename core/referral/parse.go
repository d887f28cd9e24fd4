package referral

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/angeraphael/parrainage/core"
)

var nullJSON = []byte("null")

// ErrInvalidTree is matched by every *InvalidTreeError.
var ErrInvalidTree = errors.New("invalid referral tree")

// InvalidTreeError reports a tree sent by the API that failed validation.
// It is not the caller's fault: the tree cannot be loaded.
type InvalidTreeError struct {
	Err *core.ValidationError
}

func (err *InvalidTreeError) Error() string {
	return "invalid referral tree: " + err.Err.Error()
}

func (err *InvalidTreeError) Unwrap() error { return err.Err }

func (err *InvalidTreeError) Is(target error) bool { return target == ErrInvalidTree }

// wireNode is the raw shape of a tree node sent by the API.
// Pointers tell a missing field apart from its zero value.
type wireNode struct {
	ID        *int       `json:"id" validate:"required"`
	LastName  *string    `json:"nom" validate:"required,notblank"`
	FirstName *string    `json:"prenom" validate:"required,notblank"`
	Level     *int       `json:"niveau" validate:"required,min=0"`
	Children  []wireNode `json:"enfants" validate:"dive"`
}

// ParseTree decodes & validates a raw referral tree.
// An empty or `null` payload means there is no tree: (nil, nil) is returned.
// Malformed payloads fail with a *core.ValidationError.
func ParseTree(data []byte) (*Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, nullJSON) {
		return nil, nil
	}

	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, decodeError(err)
	}
	if err := core.Validate.Struct(w); err != nil {
		return nil, core.AsValidationError(err)
	}
	return w.build(), nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "arbre"
		}
		return core.NewValidationError(err, core.FieldError{
			Field: field,
			Error: fmt.Sprintf("%s must be of type %s, got %s", field, typeErr.Type, typeErr.Value),
		})
	}
	return core.NewValidationError(errors.Wrap(err, "decoding referral tree"))
}

// build converts a validated wireNode into a Node tree, without recursion.
func (w *wireNode) build() *Node {
	type item struct {
		w *wireNode
		n *Node
	}

	root := new(Node)
	stack := []item{{w: w, n: root}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		it.n.ID = *it.w.ID
		it.n.LastName = *it.w.LastName
		it.n.FirstName = *it.w.FirstName
		it.n.Level = *it.w.Level
		it.n.Children = make([]*Node, len(it.w.Children))
		for i := range it.w.Children {
			child := new(Node)
			it.n.Children[i] = child
			stack = append(stack, item{w: &it.w.Children[i], n: child})
		}
	}
	return root
}
