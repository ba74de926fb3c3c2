package domain

import "context"

// Messenger is the messaging-platform client: an opaque collaborator that
// takes a local file and delivers it to a destination, returning the
// resulting message id. Implementations are process-scoped and shared by all
// requests.
type Messenger interface {
	// SendVideo uploads the file at path as a video
	SendVideo(ctx context.Context, chatID, path, caption string, mode FormatMode) (int, error)

	// SendPhoto uploads the file at path as a photo
	SendPhoto(ctx context.Context, chatID, path, caption string, mode FormatMode) (int, error)
}
