package repository

import "strings"

const KeySeparator = "-"

// BuildConversationKey 计算规范会话键
// 普通用户与管理员: "<普通用户>-<管理员>"；同角色: 两个 ID 字典序拼接
func BuildConversationKey(idA string, aIsAdmin bool, idB string, bIsAdmin bool) (string, error) {
	if idA == "" || idB == "" || idA == idB {
		return "", ErrInvalidPair
	}
	if strings.Contains(idA, KeySeparator) || strings.Contains(idB, KeySeparator) {
		return "", ErrInvalidPair
	}
	if aIsAdmin != bIsAdmin {
		if aIsAdmin {
			return idB + KeySeparator + idA, nil
		}
		return idA + KeySeparator + idB, nil
	}
	if idA > idB {
		idA, idB = idB, idA
	}
	return idA + KeySeparator + idB, nil
}

// SplitConversationKey 拆分会话键为两个参与者
func SplitConversationKey(key string) (string, string, error) {
	parts := strings.Split(key, KeySeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] == parts[1] {
		return "", "", ErrMalformedKey
	}
	return parts[0], parts[1], nil
}

// OtherParticipant 返回会话中的另一方，userID 不在会话中时 ok 为 false
func OtherParticipant(key string, userID string) (string, bool) {
	a, b, err := SplitConversationKey(key)
	if err != nil {
		return "", false
	}
	switch userID {
	case a:
		return b, true
	case b:
		return a, true
	}
	return "", false
}

func IsParticipant(key string, userID string) bool {
	_, ok := OtherParticipant(key, userID)
	return ok
}
