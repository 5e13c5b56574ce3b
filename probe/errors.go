package probe

import "errors"

// ErrUnknownPrompt indicates a prompt mode name that is not in the bank.
// Prompt wording is fixed per mode, so unknown names are configuration
// mistakes rather than something to improvise around.
var ErrUnknownPrompt = errors.New("unknown prompt mode")

// ErrNoCases indicates the ground truth produced zero cases after folder
// filtering. Dispatching an empty sweep would silently report perfect
// scores, so this fails loudly instead.
var ErrNoCases = errors.New("no cases matched the ground truth and folder selection")

// ErrNoModel indicates the engine was constructed without a vision model.
var ErrNoModel = errors.New("no vision model configured")
