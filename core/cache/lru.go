package cache

// lruList tracks access recency for one shard: a doubly-linked list
// plus a key index for O(1) touch and evict. Not safe for concurrent
// use; the owning shard's lock covers it.
type lruList struct {
	nodes map[string]*lruNode
	head  *lruNode // most recently used
	tail  *lruNode // least recently used
}

type lruNode struct {
	key  string
	prev *lruNode
	next *lruNode
}

func newLRUList() *lruList {
	return &lruList{nodes: make(map[string]*lruNode)}
}

// touch marks key as most recently used, inserting it if new.
func (l *lruList) touch(key string) {
	if n, ok := l.nodes[key]; ok {
		l.unlink(n)
		l.pushFront(n)
		return
	}
	n := &lruNode{key: key}
	l.nodes[key] = n
	l.pushFront(n)
}

// evict removes and returns the least recently used key, or "".
func (l *lruList) evict() string {
	if l.tail == nil {
		return ""
	}
	key := l.tail.key
	l.unlink(l.tail)
	delete(l.nodes, key)
	return key
}

// remove drops key from the list if present.
func (l *lruList) remove(key string) {
	if n, ok := l.nodes[key]; ok {
		l.unlink(n)
		delete(l.nodes, key)
	}
}

func (l *lruList) pushFront(n *lruNode) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
}

func (l *lruList) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
}
