package subscription

import "github.com/VitaminP8/blogexpress/internal/domain"

// CommentEvent - новый комментарий к посту.
type CommentEvent struct {
	PostID  string
	Comment domain.Comment
}

type Manager interface {
	Subscribe(postID string) (<-chan *CommentEvent, func())
	Publish(event *CommentEvent)
}
