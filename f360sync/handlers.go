package f360sync

import (
	"net/http"
	"strconv"

	"bitbucket.org/contaflux/contabil_backend/config"
	"bitbucket.org/contaflux/contabil_backend/models"
	"bitbucket.org/contaflux/contabil_backend/utils"
	"github.com/gin-gonic/gin"
)

// TriggerSyncHandler runs a full import synchronously and returns the run
// summary. Individual company failures are itemized in the response, never
// surfaced as an HTTP error.
func TriggerSyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SyncRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
		}

		result, err := RunImport(c.Request.Context(), req.Limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// CredentialsHandler lists the active credentials the next run would process.
func CredentialsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		creds, err := models.GetActiveCredentials(c.Request.Context(), 0)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": creds, "count": len(creds)})
	}
}

// CompaniesHandler lists synced companies with their entry counts.
func CompaniesHandler() gin.HandlerFunc {
	type companyItem struct {
		models.Company
		EntryCount int64 `json:"entry_count"`
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		db := config.GetDB().WithContext(ctx)
		if cnpj := utils.DigitsOnly(c.Query("cnpj")); cnpj != "" {
			db = db.Where("cnpj = ?", cnpj)
		}
		var companies []models.Company
		if err := db.Order("id").Find(&companies).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		items := make([]companyItem, 0, len(companies))
		for _, company := range companies {
			count, err := models.CountEntriesByCompany(ctx, company.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			items = append(items, companyItem{Company: company, EntryCount: count})
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
	}
}

// GroupChildrenHandler lists the child companies of a group parent.
func GroupChildrenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company id"})
			return
		}
		children, err := models.GetGroupChildren(c.Request.Context(), uint(id))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": children, "count": len(children)})
	}
}
