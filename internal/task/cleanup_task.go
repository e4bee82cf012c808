package task

import (
	"context"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"product_api_v1_202601/internal/repository"
	"product_api_v1_202601/internal/service"
)

// ==================== 清理任务 ====================

// 软删除商品的保留天数，超过后物理清除
const purgeRetentionDays = 30

// CleanupTask 定时物理清除软删除超期的商品，并回收其图片文件
type CleanupTask struct {
	productRepo repository.ProductRepository
	storage     service.StorageProvider

	cron    *cron.Cron
	running bool
	mutex   sync.Mutex
}

// NewCleanupTask 创建清理任务
func NewCleanupTask(productRepo repository.ProductRepository, storage service.StorageProvider) *CleanupTask {
	return &CleanupTask{
		productRepo: productRepo,
		storage:     storage,
		cron:        cron.New(cron.WithSeconds()),
	}
}

// Start 启动定时任务，每小时整点执行
func (t *CleanupTask) Start() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.running {
		return
	}

	_, err := t.cron.AddFunc("0 0 * * * *", func() {
		t.execute()
	})
	if err != nil {
		log.Printf("清理任务注册失败: %v", err)
		return
	}

	t.cron.Start()
	t.running = true
	log.Println("商品清理任务已启动")
}

// Stop 停止任务
func (t *CleanupTask) Stop() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if !t.running {
		return
	}
	<-t.cron.Stop().Done()
	t.running = false
}

// execute 执行一次清理
func (t *CleanupTask) execute() {
	ctx := context.Background()

	purged, err := t.productRepo.PurgeDeletedBefore(ctx, purgeRetentionDays)
	if err != nil {
		log.Printf("商品清理失败: %v", err)
		return
	}
	if len(purged) == 0 {
		return
	}

	// 回收图片文件，失败只记录不中断
	for i := range purged {
		if purged[i].ImagePath == "" {
			continue
		}
		if err := t.storage.Delete(ctx, purged[i].ImagePath); err != nil {
			log.Printf("图片回收失败 (product %d): %v", purged[i].ID, err)
		}
	}

	log.Printf("商品清理完成，共清除 %d 条", len(purged))
}
