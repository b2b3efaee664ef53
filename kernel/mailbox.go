package kernel

// Mailbox is a single-slot handoff. Ack counts free slots (one), Send counts
// unread messages.
type Mailbox struct {
	k    *Kernel
	send Semaphore
	ack  Semaphore
	mail int32
}

func (m *Mailbox) init(k *Kernel) {
	m.k = k
	m.send.Name = "mail.send"
	m.ack.Name = "mail.ack"
	k.InitSemaphore(&m.send, 0)
	k.InitSemaphore(&m.ack, 1)
}

// Send stores data once the previous message has been received, then
// announces it.
func (m *Mailbox) Send(data int32) {
	m.k.Wait(&m.ack)
	m.k.locked(func(*state) { m.mail = data })
	m.k.Signal(&m.send)
}

// Receive blocks until a message is available, takes it and frees the slot.
func (m *Mailbox) Receive() int32 {
	m.k.Wait(&m.send)
	var data int32
	m.k.locked(func(*state) { data = m.mail })
	m.k.Signal(&m.ack)
	return data
}

// Mailbox returns the kernel mailbox. It is usable after Init.
func (k *Kernel) Mailbox() *Mailbox { return &k.mail }

// Send puts data in the kernel mailbox.
func (k *Kernel) Send(data int32) { k.mail.Send(data) }

// Receive takes the next message from the kernel mailbox.
func (k *Kernel) Receive() int32 { return k.mail.Receive() }
