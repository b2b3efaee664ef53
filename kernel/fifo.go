package kernel

// Fifo is a bounded queue of words.
type Fifo struct {
	k *Kernel

	buf      [FifoSize]int32
	capacity uint32
	put      uint32
	get      uint32

	roomLeft    Semaphore
	currentSize Semaphore
	mutex       Semaphore
}

// FifoInit empties the kernel FIFO.
func (k *Kernel) FifoInit() {
	f := &k.fifo
	f.k = k
	f.roomLeft.Name = "fifo.room"
	f.currentSize.Name = "fifo.size"
	f.mutex.Name = "fifo.mutex"
	k.locked(func(*state) {
		f.capacity = uint32(k.cfg.FifoCapacity)
		f.put = 0
		f.get = 0
	})
	k.InitSemaphore(&f.currentSize, 0)
	k.InitSemaphore(&f.roomLeft, int32(k.cfg.FifoCapacity))
	k.InitSemaphore(&f.mutex, 1)
}

// Put appends data, blocking while the queue is full.
func (f *Fifo) Put(data int32) {
	f.k.Wait(&f.roomLeft)
	f.k.Wait(&f.mutex)
	f.k.locked(func(*state) {
		f.buf[f.put] = data
		f.put++
		if f.put == f.capacity {
			f.put = 0
		}
	})
	f.k.Signal(&f.mutex)
	f.k.Signal(&f.currentSize)
}

// Get removes the oldest word, blocking while the queue is empty.
func (f *Fifo) Get() int32 {
	f.k.Wait(&f.currentSize)
	f.k.Wait(&f.mutex)
	var data int32
	f.k.locked(func(*state) {
		data = f.buf[f.get]
		f.get++
		if f.get == f.capacity {
			f.get = 0
		}
	})
	f.k.Signal(&f.mutex)
	f.k.Signal(&f.roomLeft)
	return data
}

// Cap returns the configured capacity.
func (f *Fifo) Cap() int { return int(f.capacity) }

// Len returns the size count. It is negative while getters are blocked.
func (f *Fifo) Len() int32 { return f.k.Count(&f.currentSize) }

// Room returns the room count. It is negative while putters are blocked.
func (f *Fifo) Room() int32 { return f.k.Count(&f.roomLeft) }

// Fifo returns the kernel FIFO. It is usable after Init or FifoInit.
func (k *Kernel) Fifo() *Fifo { return &k.fifo }

// FifoPut appends data to the kernel FIFO.
func (k *Kernel) FifoPut(data int32) { k.fifo.Put(data) }

// FifoGet removes the oldest word from the kernel FIFO.
func (k *Kernel) FifoGet() int32 { return k.fifo.Get() }
