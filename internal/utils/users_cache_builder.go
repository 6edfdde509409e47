package utils

import "strconv"

const usersListCachePrefix = "users:list:v1:"

// UsersListCachePrefix is the invalidation prefix for cached list pages.
func UsersListCachePrefix() string {
	return usersListCachePrefix
}

func BuildUsersListCacheKey(limit int, cursor string) string {
	return usersListCachePrefix + "limit=" + strconv.Itoa(limit) + ":cursor=" + cursor
}
