package api

import (
	"github.com/gin-gonic/gin"

	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

func (s *Server) dashboardStats(c *gin.Context) {
	accounts, err := s.accounts.GetAll()
	if err != nil {
		failErr(c, err)
		return
	}

	byStatus := map[string]int{}
	for _, a := range accounts {
		byStatus[a.Status]++
	}

	inboxCount, err := s.cache.CountGlobal(types.FolderInbox)
	if err != nil {
		failErr(c, err)
		return
	}
	junkCount, err := s.cache.CountGlobal(types.FolderJunk)
	if err != nil {
		failErr(c, err)
		return
	}
	recent, err := s.cache.Recent(10)
	if err != nil {
		failErr(c, err)
		return
	}

	ok(c, gin.H{
		"accounts": gin.H{
			"total":     len(accounts),
			"by_status": byStatus,
		},
		"cached_mails": gin.H{
			"inbox": inboxCount,
			"junk":  junkCount,
		},
		"recent_mails": recent,
	})
}
