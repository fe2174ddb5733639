package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix       = "user:%d"
	PostKeyPrefix       = "post:%d"
	PostCommentsPrefix  = "post:%d:comments"
	PostsListKeyLiteral = "posts:list"
)

const (
	UserTTL      = 5 * time.Minute
	PostTTL      = 10 * time.Minute
	PostsListTTL = 2 * time.Minute
	CommentsTTL  = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func PostCommentsKey(postID uint) string {
	return fmt.Sprintf(PostCommentsPrefix, postID)
}

func PostsListKey() string {
	return PostsListKeyLiteral
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidatePost drops the post detail, its comment list and the shared
// posts list. Any write to a post touches all three.
func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
	Invalidate(ctx, PostCommentsKey(postID))
	Invalidate(ctx, PostsListKey())
}

func InvalidatePostsList(ctx context.Context) {
	Invalidate(ctx, PostsListKey())
}
