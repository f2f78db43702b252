package moderation

import "time"

type ActionKind string

const (
	ActionDeleteMessage ActionKind = "delete_message"
	ActionSendMessage   ActionKind = "send_message"
	ActionSendPhoto     ActionKind = "send_photo"
	ActionRestrict      ActionKind = "restrict"
	ActionBan           ActionKind = "ban"
	ActionGrantTitle    ActionKind = "grant_title"
)

// Permissions is the set of rights a restricted member keeps. The zero value mutes.
type Permissions struct {
	CanSendMessages bool
}

// Action is one request to the chat transport. OnSuccess and OnFailure are
// applied after the action depending on whether the transport accepted it.
type Action struct {
	Kind        ActionKind
	ChatID      int64
	MessageID   int // message to delete, or to reply to when sending
	UserID      int64
	Text        string // message text, photo caption or member title
	HTML        bool
	ImagePath   string
	Permissions Permissions
	Until       time.Time

	OnSuccess []Action
	OnFailure []Action
}

// Then returns a copy of a that runs next only if a succeeds.
func (a Action) Then(next ...Action) Action {
	a.OnSuccess = append(append([]Action(nil), a.OnSuccess...), next...)
	return a
}

// Else returns a copy of a that runs fallback only if a fails.
func (a Action) Else(fallback ...Action) Action {
	a.OnFailure = append(append([]Action(nil), a.OnFailure...), fallback...)
	return a
}

func DeleteMessage(chatID int64, messageID int) Action {
	return Action{Kind: ActionDeleteMessage, ChatID: chatID, MessageID: messageID}
}

func SendText(chatID int64, text string) Action {
	return Action{Kind: ActionSendMessage, ChatID: chatID, Text: text}
}

func SendHTML(chatID int64, text string) Action {
	return Action{Kind: ActionSendMessage, ChatID: chatID, Text: text, HTML: true}
}

func Reply(chatID int64, messageID int, text string, html bool) Action {
	return Action{Kind: ActionSendMessage, ChatID: chatID, MessageID: messageID, Text: text, HTML: html}
}

func SendPhoto(chatID int64, imagePath, caption string) Action {
	return Action{Kind: ActionSendPhoto, ChatID: chatID, ImagePath: imagePath, Text: caption}
}

// Restrict mutes userID until the absolute time until.
func Restrict(chatID, userID int64, until time.Time) Action {
	return Action{Kind: ActionRestrict, ChatID: chatID, UserID: userID, Until: until}
}

func Ban(chatID, userID int64) Action {
	return Action{Kind: ActionBan, ChatID: chatID, UserID: userID}
}

func GrantTitle(chatID, userID int64, title string) Action {
	return Action{Kind: ActionGrantTitle, ChatID: chatID, UserID: userID, Text: title}
}

// Effects collects the transport actions produced while handling one event.
// They are applied in order by an Executor.
type Effects struct {
	Actions []Action
}

func (e *Effects) Add(actions ...Action) {
	e.Actions = append(e.Actions, actions...)
}

func (e Effects) Empty() bool {
	return len(e.Actions) == 0
}

// Kinds lists the kinds of the top-level actions, in order.
func (e Effects) Kinds() []ActionKind {
	kinds := make([]ActionKind, 0, len(e.Actions))
	for _, a := range e.Actions {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

// Find returns the first top-level action of the given kind.
func (e Effects) Find(kind ActionKind) (Action, bool) {
	for _, a := range e.Actions {
		if a.Kind == kind {
			return a, true
		}
	}
	return Action{}, false
}
