package handlers

import (
	"net/http"

	"task-tracking-client/internal/database"
	"task-tracking-client/internal/models"

	"github.com/gin-gonic/gin"
)

// GetAllUsers returns active users for assignment pickers (protected)
// GET /api/users
func GetAllUsers(c *gin.Context) {
	var users []models.User
	if err := database.GetDB().Where("is_active = ?", true).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// GetAllCompanies returns companies with their server-computed user counts
// GET /api/companies
func GetAllCompanies(c *gin.Context) {
	var companies []models.Company
	if err := database.GetDB().Find(&companies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch companies"})
		return
	}

	for i := range companies {
		var count int64
		if err := database.GetDB().Model(&models.User{}).
			Where("company_id = ?", companies[i].ID).
			Count(&count).Error; err == nil {
			companies[i].UserCount = count
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"companies": companies,
		"count":     len(companies),
	})
}
