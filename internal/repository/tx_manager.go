package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Products() ProductRepository
	Videos() ProductVideoRepository
	VideoJobs() VideoJobRepository
	Categories() CategoryRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// 動画行とoutbox行を同一トランザクションで書くために使う。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
