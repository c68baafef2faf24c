package domain

import "errors"

// Notice is the short, user-facing message shown for an operation outcome.
// Error details are logged, never placed in a Notice.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive,omitempty"`
}

// Operation names used to pick notice wording.
const (
	OpCreate  = "create"
	OpJoin    = "join"
	OpLeave   = "leave"
	OpAddItem = "add_item"
	OpDelete  = "delete"
	OpAI      = "ai"
)

var successNotices = map[string]Notice{
	OpCreate:  {Title: "Group created!", Description: "You can now invite others to shop with you."},
	OpJoin:    {Title: "Joined Group!", Description: "You're now shopping with your friends."},
	OpLeave:   {Title: "Left Group", Description: "You're back to your individual cart."},
	OpAddItem: {Title: "Added to group cart", Description: "Everyone in the group can see it now."},
	OpDelete:  {Title: "Group closed", Description: "The group cart was removed."},
}

// SuccessNotice returns the notice shown when op succeeds.
func SuccessNotice(op string) Notice {
	if n, ok := successNotices[op]; ok {
		return n
	}
	return Notice{Title: "Done", Description: "Your request was completed."}
}

// NoticeFor converts a failure of op into a notice.
func NoticeFor(op string, err error) Notice {
	n := Notice{Destructive: true}
	switch {
	case op == OpJoin && (errors.Is(err, ErrCartNotFound) || errors.Is(err, ErrValidation)):
		n.Title = "Failed to Join Group"
		n.Description = "The invite link may be invalid or expired. Please check with the group owner."
	case errors.Is(err, ErrCartNotFound):
		n.Title = "Group not found"
		n.Description = "This group cart no longer exists."
	case errors.Is(err, ErrOwnerInvalid):
		n.Title = "Failed to create group"
		n.Description = "There was an issue creating the group cart. Please try again."
	case errors.Is(err, ErrTransactionAborted):
		n.Title = "Could not add product"
		n.Description = "Could not add product to cart. Please try again."
	case errors.Is(err, ErrNotMember):
		n.Title = "Not in this group"
		n.Description = "Join the group before adding products to its cart."
	case errors.Is(err, ErrForbidden):
		n.Title = "Not allowed"
		n.Description = "Only the group owner can do that."
	case errors.Is(err, ErrValidation):
		n.Title = "Invalid request"
		n.Description = "Please check your input and try again."
	case errors.Is(err, ErrNotFound):
		n.Title = "Not found"
		n.Description = "The requested item could not be found."
	case errors.Is(err, ErrNetworkFailure):
		n.Title = "Service unavailable"
		n.Description = "We could not reach a required service. Please try again."
	default:
		n.Title = "Something went wrong"
		n.Description = "Please try again."
		switch op {
		case OpCreate:
			n.Title = "Failed to create group"
			n.Description = "There was an issue creating the group cart. Please try again."
		case OpJoin:
			n.Title = "Failed to Join Group"
			n.Description = "The invite link may be invalid or expired. Please check with the group owner."
		case OpAddItem:
			n.Title = "Could not add product"
			n.Description = "Could not add product to cart. Please try again."
		}
	}
	return n
}
