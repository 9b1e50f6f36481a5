// Package roomid 私聊房间标识。
package roomid

// Separator 房间 id 中两个用户 id 的分隔符
const Separator = "_"

// For 返回两个用户的私聊房间 id：字典序排序后拼接，与参数顺序无关。
// 加入房间与房间广播必须都通过该函数计算，双方才会落到同一个房间。
func For(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + Separator + userB
}

// PersonalChannel 用户个人通知频道
func PersonalChannel(userID string) string {
	return "user" + Separator + userID
}
