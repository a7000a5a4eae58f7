package sqlstore

import (
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
)

// OpenMySQL 使用 mysql.Config 创建连接池
func OpenMySQL(cfg *mysql.Config) (*sql.DB, error) {
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

// MySQLConfig 返回常用的 mysql 配置，开启 parseTime
func MySQLConfig(addr, user, password, dbName string) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = addr
	cfg.User = user
	cfg.Passwd = password
	cfg.DBName = dbName
	cfg.ParseTime = true
	cfg.Timeout = 5 * time.Second
	return cfg
}

// OpenSQLite 打开 sqlite 数据库，busy_timeout 用于并发事务之间的等待
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	return db, nil
}
