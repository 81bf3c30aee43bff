package textbox

import "github.com/ByLCY/folio/markup"

// runQueue 保存尚未消费的 Run。队首之前留有空位，出队与放回队首都是均摊 O(1)。
type runQueue struct {
	buf  []markup.Run
	head int
}

func newRunQueue(runs []markup.Run) runQueue {
	return runQueue{buf: runs}
}

func (q *runQueue) Len() int { return len(q.buf) - q.head }

func (q *runQueue) Front() (markup.Run, bool) {
	if q.Len() == 0 {
		return markup.Run{}, false
	}
	return q.buf[q.head], true
}

func (q *runQueue) PopFront() (markup.Run, bool) {
	if q.Len() == 0 {
		return markup.Run{}, false
	}
	r := q.buf[q.head]
	q.buf[q.head] = markup.Run{}
	q.head++
	return r, true
}

// PushFront 把 r 放回队首。
func (q *runQueue) PushFront(r markup.Run) {
	if q.head == 0 {
		q.grow(1)
	}
	q.head--
	q.buf[q.head] = r
}

// PushFrontAll 按原顺序把 runs 放回队首。
func (q *runQueue) PushFrontAll(runs []markup.Run) {
	if len(runs) == 0 {
		return
	}
	if q.head < len(runs) {
		q.grow(len(runs))
	}
	q.head -= len(runs)
	copy(q.buf[q.head:], runs)
}

// Items 返回队列内容，调用方不得修改。
func (q *runQueue) Items() []markup.Run { return q.buf[q.head:] }

// grow 在队首前预留至少 n 个空位，空位数不少于当前长度，保证连续放回的均摊代价。
func (q *runQueue) grow(n int) {
	size := q.Len()
	pad := max(n, size, 8)
	buf := make([]markup.Run, pad+size)
	copy(buf[pad:], q.buf[q.head:])
	q.buf, q.head = buf, pad
}
