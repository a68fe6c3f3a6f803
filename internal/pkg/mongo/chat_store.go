package mongo

import (
	"Storefront/internal/model"
	"Storefront/internal/repository"
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type chatStoreImpl struct {
	conversations *mongo.Collection
	counters      *mongo.Collection
}

// NewChatStore 文档型聊天存储，一个会话一个文档
func NewChatStore(db *mongo.Database) repository.ChatStore {
	return &chatStoreImpl{
		conversations: db.Collection(conversationCollection),
		counters:      db.Collection(counterCollection),
	}
}

// EnsureChatIndexes 参与者索引，用于会话列表与未读统计
func EnsureChatIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(conversationCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_a", Value: 1}}},
		{Keys: bson.D{{Key: "user_b", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
	})
	return err
}

func (s *chatStoreImpl) EnsureConversation(ctx context.Context, idA string, aIsAdmin bool, idB string, bIsAdmin bool) (string, error) {
	key, err := repository.BuildConversationKey(idA, aIsAdmin, idB, bIsAdmin)
	if err != nil {
		return "", err
	}
	a, b, _ := repository.SplitConversationKey(key)

	update := bson.M{"$setOnInsert": bson.M{
		"user_a":     a,
		"user_b":     b,
		"deleted_by": bson.A{},
		"messages":   bson.A{},
		"created_at": time.Now().UTC(),
	}}
	_, err = s.conversations.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	// 并发 upsert 可能撞唯一键，视为已存在
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return "", errors.Wrap(err, "ensure conversation")
	}
	return key, nil
}

func (s *chatStoreImpl) GetConversation(ctx context.Context, key string) (*repository.ConversationRecord, error) {
	var doc conversationDoc
	opts := options.FindOne().SetProjection(bson.M{"messages": 0})
	err := s.conversations.FindOne(ctx, bson.M{"_id": key}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrConversationNotFound
		}
		return nil, errors.Wrap(err, "get conversation")
	}
	return doc.toRecord(), nil
}

// MarkDeleted $addToSet 后以 "deleted_by 同时包含双方" 为条件删除文档，消息随文档一起清除
func (s *chatStoreImpl) MarkDeleted(ctx context.Context, key string, userID string) (bool, error) {
	a, b, err := repository.SplitConversationKey(key)
	if err != nil {
		return false, err
	}

	var doc conversationDoc
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"messages": 0})
	err = s.conversations.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$addToSet": bson.M{"deleted_by": userID}},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, repository.ErrConversationNotFound
		}
		return false, errors.Wrap(err, "mark conversation deleted")
	}

	record := doc.toRecord()
	if !record.IsDeletedBy(a) || !record.IsDeletedBy(b) {
		return false, nil
	}

	res, err := s.conversations.DeleteOne(ctx, bson.M{
		"_id":        key,
		"deleted_by": bson.M{"$all": bson.A{a, b}},
	})
	if err != nil {
		return false, errors.Wrap(err, "purge conversation")
	}
	return res.DeletedCount == 1, nil
}

func (s *chatStoreImpl) UnmarkDeleted(ctx context.Context, key string, userID string) error {
	_, err := s.conversations.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$pull": bson.M{"deleted_by": userID}},
	)
	return errors.Wrap(err, "unmark conversation deleted")
}

func (s *chatStoreImpl) ListConversationsForParticipant(ctx context.Context, userID string, includeAsAdmin bool) ([]string, error) {
	filter := bson.M{"deleted_by": bson.M{"$ne": userID}}
	if !includeAsAdmin {
		filter["$or"] = bson.A{bson.M{"user_a": userID}, bson.M{"user_b": userID}}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 1})

	cursor, err := s.conversations.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var docs []struct {
		ID string `bson:"_id"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode conversations")
	}
	keys := make([]string, 0, len(docs))
	for _, d := range docs {
		keys = append(keys, d.ID)
	}
	return keys, nil
}

// nextMessageID 全局自增序列
func (s *chatStoreImpl) nextMessageID(ctx context.Context) (uint64, error) {
	var counter counterDoc
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": messageCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return uint64(counter.Seq), nil
}

// Append $push 时按 id 排序，保证数组有序，尾元素即最新消息
func (s *chatStoreImpl) Append(ctx context.Context, conversationID string, senderID string, text string, isSystem bool) (*model.Message, error) {
	if !isSystem && strings.TrimSpace(text) == "" {
		return nil, repository.ErrEmptyText
	}

	id, err := s.nextMessageID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "next message id")
	}
	msg := messageDoc{
		ID:        id,
		SenderID:  senderID,
		Text:      text,
		IsSystem:  isSystem,
		CreatedAt: time.Now().UTC(),
	}

	res, err := s.conversations.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$push": bson.M{"messages": bson.M{
			"$each": bson.A{msg},
			"$sort": bson.M{"id": 1},
		}}},
	)
	if err != nil {
		return nil, errors.Wrap(err, "append message")
	}
	if res.MatchedCount == 0 {
		return nil, repository.ErrConversationNotFound
	}
	return msg.toModel(conversationID), nil
}

func (s *chatStoreImpl) ListForConversation(ctx context.Context, conversationID string) ([]*model.Message, error) {
	var doc conversationDoc
	opts := options.FindOne().SetProjection(bson.M{"messages": 1})
	err := s.conversations.FindOne(ctx, bson.M{"_id": conversationID}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []*model.Message{}, nil
		}
		return nil, errors.Wrap(err, "list messages")
	}

	msgs := make([]*model.Message, 0, len(doc.Messages))
	for i := range doc.Messages {
		msgs = append(msgs, doc.Messages[i].toModel(conversationID))
	}
	return msgs, nil
}

// MarkSeenBulk arrayFilters 批量置已读
func (s *chatStoreImpl) MarkSeenBulk(ctx context.Context, conversationID string, exceptSenderID string) (int64, error) {
	count, err := s.CountUnread(ctx, conversationID, exceptSenderID)
	if err != nil || count == 0 {
		return 0, err
	}

	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{
			"m.sender_id": bson.M{"$ne": exceptSenderID},
			"m.seen":      false,
		}},
	})
	_, err = s.conversations.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"messages.$[m].seen": true}},
		opts,
	)
	if err != nil {
		return 0, errors.Wrap(err, "mark seen")
	}
	return count, nil
}

func (s *chatStoreImpl) LastMessage(ctx context.Context, conversationID string) (*model.Message, error) {
	var doc conversationDoc
	opts := options.FindOne().SetProjection(bson.M{"messages": bson.M{"$slice": -1}})
	err := s.conversations.FindOne(ctx, bson.M{"_id": conversationID}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "last message")
	}
	if len(doc.Messages) == 0 {
		return nil, nil
	}
	return doc.Messages[len(doc.Messages)-1].toModel(conversationID), nil
}

func (s *chatStoreImpl) CountUnread(ctx context.Context, conversationID string, viewerID string) (int64, error) {
	return s.countUnread(ctx, bson.M{"_id": conversationID}, viewerID)
}

// UnreadCountFor 聚合管道统计所有未删除会话中的未读消息
func (s *chatStoreImpl) UnreadCountFor(ctx context.Context, userID string) (int64, error) {
	return s.countUnread(ctx, bson.M{
		"$or":        bson.A{bson.M{"user_a": userID}, bson.M{"user_b": userID}},
		"deleted_by": bson.M{"$ne": userID},
	}, userID)
}

func (s *chatStoreImpl) countUnread(ctx context.Context, match bson.M, viewerID string) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: "$messages"}},
		{{Key: "$match", Value: bson.M{
			"messages.sender_id": bson.M{"$ne": viewerID},
			"messages.seen":      false,
		}}},
		{{Key: "$count", Value: "n"}},
	}
	cursor, err := s.conversations.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, errors.Wrap(err, "unread aggregate")
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var rows []struct {
		N int64 `bson:"n"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return 0, errors.Wrap(err, "decode unread aggregate")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].N, nil
}
