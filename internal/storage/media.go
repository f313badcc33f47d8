package storage

import (
	"context"
	"io"
)

const (
	FolderChatAvatar = "chat-avatar"
	FolderAvatar     = "avatar"
)

// Upload is a file received from a client, ready to be stored.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// MediaStore keeps images on a media host and hands back durable URLs.
// Delete takes the URL that Upload returned.
type MediaStore interface {
	Upload(ctx context.Context, folder string, file Upload) (string, error)
	Delete(ctx context.Context, folder string, url string) error
}
