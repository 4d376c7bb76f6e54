package nn

import "github.com/pkg/errors"

// ErrStateDict reports a state dictionary that does not fit the layer.
var ErrStateDict = errors.New("invalid state dict")
