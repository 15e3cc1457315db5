package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Console serves the admin management page
// GET /admin/gallery (admin)
func (h *GalleryHandler) Console(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	return c.HTML(http.StatusOK, adminConsoleHTML)
}

const adminConsoleHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Gallery Admin - Dr. Islam Elsagher</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; background: #f5f5f5; }
        .container { max-width: 1200px; margin: 0 auto; padding: 20px; }
        .header, .card { background: white; padding: 20px; border-radius: 8px; margin-bottom: 20px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .form-group { margin-bottom: 15px; }
        label { display: block; margin-bottom: 5px; font-weight: 500; }
        input, select, textarea { width: 100%; padding: 10px; border: 1px solid #ddd; border-radius: 4px; font-size: 14px; }
        .btn { background: #007cba; color: white; padding: 12px 24px; border: none; border-radius: 4px; cursor: pointer; }
        .btn-danger { background: #dc3545; }
        .case-list { display: grid; grid-template-columns: repeat(auto-fill, minmax(300px, 1fr)); gap: 20px; }
        .case-item { border: 1px solid #ddd; border-radius: 8px; overflow: hidden; }
        .case-images { display: flex; }
        .case-images img { width: 50%; height: 150px; object-fit: cover; }
        .case-info { padding: 15px; }
        .case-actions { padding: 10px 15px; background: #f8f9fa; display: flex; gap: 10px; }
        .status { padding: 4px 8px; border-radius: 4px; font-size: 12px; font-weight: 500; }
        .status-pending { background: #fff3cd; color: #856404; }
        .status-approved { background: #d1edff; color: #0c5460; }
        .alert { padding: 15px; border-radius: 4px; margin-bottom: 20px; }
        .alert-success { background: #d1edff; color: #0c5460; }
        .alert-error { background: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Gallery Administration</h1>
            <p>Upload and manage before/after treatment cases</p>
        </div>

        <div id="alerts"></div>

        <div class="card">
            <h2>Upload New Case</h2>
            <form id="uploadForm" enctype="multipart/form-data">
                <div class="form-group">
                    <label for="beforeImage">Before Image *</label>
                    <input type="file" id="beforeImage" name="beforeImage" accept="image/*" required>
                </div>
                <div class="form-group">
                    <label for="afterImage">After Image *</label>
                    <input type="file" id="afterImage" name="afterImage" accept="image/*" required>
                </div>
                <div class="form-group">
                    <label for="title">Case Title *</label>
                    <input type="text" id="title" name="title" required>
                </div>
                <div class="form-group">
                    <label for="category">Category *</label>
                    <select id="category" name="category" required>
                        <option value="">Select category</option>
                        <option value="implants">Dental Implants</option>
                        <option value="cosmetic">Cosmetic Dentistry</option>
                        <option value="orthodontic">Orthodontics</option>
                        <option value="restoration">Dental Restoration</option>
                        <option value="surgery">Oral Surgery</option>
                    </select>
                </div>
                <div class="form-group">
                    <label for="treatmentType">Treatment Type</label>
                    <input type="text" id="treatmentType" name="treatmentType">
                </div>
                <div class="form-group">
                    <label for="description">Description</label>
                    <textarea id="description" name="description"></textarea>
                </div>
                <div class="form-group">
                    <label>
                        <input type="checkbox" name="patientConsent" value="true" required>
                        Patient consent obtained for photo usage
                    </label>
                </div>
                <button type="submit" class="btn">Upload Case</button>
            </form>
        </div>

        <div class="card">
            <h2>Pending Cases</h2>
            <div id="pendingCases" class="case-list"><p>Loading...</p></div>
        </div>

        <div class="card">
            <h2>Approved Cases</h2>
            <div id="approvedCases" class="case-list"><p>Loading...</p></div>
        </div>
    </div>

    <script>
        const API_BASE = '/api/gallery';
        const authHeader = 'Bearer ' + prompt('Enter admin token:');
        const sessionId = 'console-' + Math.random().toString(36).slice(2);
        let csrfToken = '';

        async function refreshCsrf() {
            const response = await fetch(API_BASE + '/csrf?sessionId=' + sessionId, {
                headers: { 'Authorization': authHeader }
            });
            const result = await response.json();
            if (result.success) csrfToken = result.token;
        }

        function adminHeaders(extra) {
            return Object.assign({
                'Authorization': authHeader,
                'X-Session-ID': sessionId,
                'X-CSRF-Token': csrfToken
            }, extra || {});
        }

        document.getElementById('uploadForm').addEventListener('submit', async (e) => {
            e.preventDefault();
            const formData = new FormData(e.target);
            try {
                const response = await fetch(API_BASE + '/upload', {
                    method: 'POST',
                    headers: adminHeaders(),
                    body: formData
                });
                const result = await response.json();
                if (result.success) {
                    showAlert('Case uploaded successfully!', 'success');
                    e.target.reset();
                    loadCases();
                } else {
                    showAlert('Upload failed: ' + result.error, 'error');
                }
            } catch (error) {
                showAlert('Upload failed: ' + error.message, 'error');
            }
        });

        async function loadCases() {
            try {
                const [pending, approved] = await Promise.all([
                    fetch(API_BASE + '/list?status=pending', { headers: { 'Authorization': authHeader } }),
                    fetch(API_BASE + '/list?status=approved', { headers: { 'Authorization': authHeader } })
                ]);
                renderCases('pendingCases', (await pending.json()).cases, 'pending');
                renderCases('approvedCases', (await approved.json()).cases, 'approved');
            } catch (error) {
                showAlert('Failed to load cases: ' + error.message, 'error');
            }
        }

        function renderCases(containerId, cases, type) {
            const container = document.getElementById(containerId);
            if (!cases || cases.length === 0) {
                container.innerHTML = '<p>No cases found.</p>';
                return;
            }
            container.innerHTML = cases.map(c => ` + "`" + `
                <div class="case-item">
                    <div class="case-images">
                        <img src="/${c.beforeImages.original}" alt="Before" loading="lazy">
                        <img src="/${c.afterImages.original}" alt="After" loading="lazy">
                    </div>
                    <div class="case-info">
                        <h3>${c.title}</h3>
                        <p><strong>Category:</strong> ${c.category}</p>
                        <span class="status status-${c.status}">${c.status.toUpperCase()}</span>
                    </div>
                    <div class="case-actions">
                        ${type === 'pending' ? ` + "`" + `<button class="btn" onclick="approveCase('${c.id}')">Approve</button>` + "`" + ` : ''}
                        <button class="btn btn-danger" onclick="deleteCase('${c.id}')">Delete</button>
                    </div>
                </div>
            ` + "`" + `).join('');
        }

        async function approveCase(caseId) {
            const response = await fetch(API_BASE + '/approve/' + caseId, {
                method: 'POST',
                headers: adminHeaders({ 'Content-Type': 'application/json' }),
                body: JSON.stringify({ approvedBy: 'admin' })
            });
            const result = await response.json();
            showAlert(result.success ? 'Case approved!' : 'Approval failed: ' + result.error,
                result.success ? 'success' : 'error');
            if (result.success) loadCases();
        }

        async function deleteCase(caseId) {
            if (!confirm('Delete this case?')) return;
            const response = await fetch(API_BASE + '/delete/' + caseId, {
                method: 'DELETE',
                headers: adminHeaders()
            });
            const result = await response.json();
            showAlert(result.success ? 'Case deleted!' : 'Deletion failed: ' + result.error,
                result.success ? 'success' : 'error');
            if (result.success) loadCases();
        }

        function showAlert(message, type) {
            const alerts = document.getElementById('alerts');
            alerts.innerHTML = '<div class="alert alert-' + (type === 'error' ? 'error' : 'success') + '">' + message + '</div>';
            setTimeout(() => { alerts.innerHTML = ''; }, 5000);
        }

        refreshCsrf().then(loadCases);
    </script>
</body>
</html>`
