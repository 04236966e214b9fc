/**
 *
 * 双端队列
 * 用于保存每个任务最近的进度消息，新的 websocket 订阅者先回放历史再接收推送
 * 容量固定，满了以后由调用方决定丢弃头部还是尾部
 *
 */

package deque

type Deque[T any] interface {
	// 队列的长度
	Size() int

	// 获取队列中对应下标的元素，0 为头部
	Get(i int) T

	// 设定队列中对应下标的元素
	Set(i int, v T)

	// 正向遍历
	Traverse(f func(i int, item T))

	// 在队列结尾增加一个元素，队列已满时返回 false
	AddLast(v T) bool

	// 在队列结尾删除一个元素
	RemoveLast() (T, bool)

	// 在队列头部增加一个元素，队列已满时返回 false
	AddFirst(v T) bool

	// 在队列头部删除一个元素
	RemoveFirst() (T, bool)

	IsFull() bool

	IsEmpty() bool
}
