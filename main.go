package main

import "github.com/zhizhunbao/gangwon-business-portal-sub000/internal/app"

func main() {
	app.Run()
}
