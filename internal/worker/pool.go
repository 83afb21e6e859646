// Package worker 提供有界的后台写任务池
// 聊天关键路径之外的落库（活跃时间、token 累计、邮件日志、分析汇总）
// 都经过这里异步执行，失败只记日志不回传
package worker

import (
	"fmt"
	"log"
	"runtime/debug"

	"github.com/panjf2000/ants/v2"
)

// Pool 后台写任务池
type Pool struct {
	pool *ants.Pool
}

// NewPool 创建任务池
// size 为并发上限，queueSize 为排队上限，排满后 Submit 阻塞
func NewPool(size, queueSize int) (*Pool, error) {
	if size <= 0 {
		size = 1
	}
	p, err := ants.NewPool(size, ants.WithMaxBlockingTasks(queueSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &Pool{pool: p}, nil
}

// Submit 提交后台任务
// name 用于失败日志定位，任务自带 recover，panic 不会带垮进程
func (p *Pool) Submit(name string, task func() error) {
	err := p.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[worker] task %s panicked: %v\n%s", name, r, debug.Stack())
			}
		}()
		if err := task(); err != nil {
			log.Printf("[worker] task %s failed: %v", name, err)
		}
	})
	if err != nil {
		log.Printf("[worker] submit %s rejected: %v", name, err)
	}
}

// Running 当前正在执行的任务数
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Release 关闭任务池，等待在跑的任务结束
func (p *Pool) Release() {
	p.pool.Release()
}
