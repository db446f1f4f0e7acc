package gateway

import "sync"

type fanoutJob struct {
	conns   []*Client
	payload []byte
}

// Fanout 推送扇出工作池。入队用非阻塞 select：
// 发送队列已满的慢客户端直接丢帧，绝不回压到通知发起方，
// 也不影响其他会话的投递。
type Fanout struct {
	jobs     chan fanoutJob
	stop     chan struct{}
	stopOnce sync.Once
}

func NewFanout(workers, queue int) *Fanout {
	f := &Fanout{
		jobs: make(chan fanoutJob, queue),
		stop: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case <-f.stop:
					return
				case job := <-f.jobs:
					for _, c := range job.conns {
						select {
						case c.Send <- job.payload:
						default:
							// Slow client: drop the frame for this session only
						}
					}
				}
			}
		}()
	}
	return f
}

func (f *Fanout) Broadcast(conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	select {
	case f.jobs <- fanoutJob{conns: conns, payload: payload}:
	case <-f.stop:
		// 已停止：丢弃而不是阻塞
	}
}

// Stop 终止全部 worker；幂等，之后的 Broadcast 直接丢弃。
func (f *Fanout) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
}
